package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rigforge/compat-cli/internal/model"
	"github.com/rigforge/compat-cli/internal/vocab"
)

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Inspect and extend the canonical vocabulary",
}

var vocabShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Summarize the loaded vocabulary",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := vocab.Load(cfg.Vocab.Path)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"sockets":      len(v.Sockets),
			"chipsets":     len(v.ChipsetMap),
			"memory_types": len(v.MemoryTypes),
			"form_factors": len(v.FormFactors),
			"models": map[string]int{
				"cpu":         len(v.ModelsForKind(model.KindCPU)),
				"motherboard": len(v.ModelsForKind(model.KindMotherboard)),
			},
		})
	},
}

var vocabCheckCmd = &cobra.Command{
	Use:   "check [vocab.yaml]",
	Short: "Validate a vocabulary file",
	Long: "Loads the given vocabulary overlay (or the configured one) on top of the " +
		"defaults and reports model entries that cannot contribute to extraction.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Vocab.Path
		if len(args) == 1 {
			path = args[0]
		}
		v, err := vocab.Load(path)
		if err != nil {
			return err
		}

		var issues []string
		for _, m := range v.Models {
			switch m.Kind {
			case model.KindCPU:
				if m.Socket == "" {
					issues = append(issues, "cpu model "+m.Name+" has no socket")
				}
			case model.KindMotherboard:
				if m.Socket == "" || m.MemoryType == "" {
					issues = append(issues, "motherboard model "+m.Name+" is missing socket or memory type")
				}
			}
			if _, ok := v.SocketForChipset(m.Chipset); m.Chipset != "" && !ok {
				issues = append(issues, "model "+m.Name+" references unmapped chipset "+m.Chipset)
			}
		}
		return printJSON(map[string]any{
			"path":   path,
			"models": len(v.Models),
			"issues": issues,
			"ok":     len(issues) == 0,
		})
	},
}

var vocabImportCmd = &cobra.Command{
	Use:   "import <models.xlsx>",
	Short: "Convert a model spreadsheet into a vocabulary overlay",
	Long: "Reads canonical model rows from an XLSX sheet and writes them as a YAML " +
		"overlay on stdout, ready to merge into the vocabulary file.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		models, err := vocab.ImportModelsXLSX(args[0])
		if err != nil {
			return err
		}
		zap.L().Info("imported models from spreadsheet",
			zap.String("path", args[0]),
			zap.Int("models", len(models)),
		)

		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(map[string]any{"models": models})
	},
}

func init() {
	vocabCmd.AddCommand(vocabShowCmd, vocabCheckCmd, vocabImportCmd)
	rootCmd.AddCommand(vocabCmd)
}
