package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rigforge/compat-cli/internal/catalog"
	"github.com/rigforge/compat-cli/internal/model"
	"github.com/rigforge/compat-cli/internal/store"
)

var (
	extractAll   bool
	extractKind  string
	extractForce bool
	extractInput string
)

var extractCmd = &cobra.Command{
	Use:   "extract [product-id...]",
	Short: "Extract compatibility records from raw product listings",
	Long: "Pulls raw specifications from the catalog (or a local JSON file via --input), " +
		"runs attribute extraction, and upserts the resulting records. " +
		"Records carrying a manual override are skipped unless --force is set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if !extractAll && len(args) == 0 {
			return cmd.Help()
		}

		var (
			cat catalog.Client
			err error
		)
		if extractInput != "" {
			cat, err = loadCatalogFile(extractInput)
		} else {
			cat, err = initCatalogHTTP()
		}
		if err != nil {
			return err
		}

		env, err := initEngine(ctx, cat)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.Migrate(ctx); err != nil {
			return err
		}

		var run *store.ExtractionRun
		if extractAll {
			run, err = env.Pipeline.RunAll(ctx, model.ComponentKind(extractKind), extractForce)
		} else {
			run, err = env.Pipeline.RunBatch(ctx, args, extractForce)
		}
		if err != nil {
			return err
		}

		zap.L().Info("extraction complete",
			zap.String("run_id", run.ID),
			zap.String("status", string(run.Status)),
			zap.Int("total", run.Total),
			zap.Int("updated", run.Updated),
			zap.Int("skipped", run.Skipped),
			zap.Int("failed", run.Failed),
		)
		return nil
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractAll, "all", false, "extract every product the catalog lists")
	extractCmd.Flags().StringVar(&extractKind, "kind", "", "limit --all to one component kind (cpu, motherboard, ram)")
	extractCmd.Flags().BoolVar(&extractForce, "force", false, "overwrite manual overrides")
	extractCmd.Flags().StringVar(&extractInput, "input", "", "read raw specifications from a JSON file instead of the catalog API")
	rootCmd.AddCommand(extractCmd)
}
