package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/rigforge/compat-cli/internal/model"
)

var (
	auditKind   string
	auditLimit  int
	auditOffset int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Report records missing required compatibility fields",
}

var auditCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count incomplete records per component kind",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEngine(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.Auditor.Count(ctx)
		if err != nil {
			return err
		}
		return printJSON(summary)
	},
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List incomplete records with their missing fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kind := model.ComponentKind(auditKind)
		if kind != "" && !kind.Valid() {
			return eris.Errorf("unknown component kind %q", auditKind)
		}

		env, err := initEngine(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		records, err := env.Auditor.ListIncomplete(ctx, kind, auditLimit, auditOffset)
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	auditListCmd.Flags().StringVar(&auditKind, "kind", "", "limit to one component kind")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 50, "maximum records to list")
	auditListCmd.Flags().IntVar(&auditOffset, "offset", 0, "records to skip")
	auditCmd.AddCommand(auditCountCmd, auditListCmd)
	rootCmd.AddCommand(auditCmd)
}
