package main

import (
	"github.com/spf13/cobra"

	"github.com/rigforge/compat-cli/internal/resolver"
)

var resolveMode string

var resolveCmd = &cobra.Command{
	Use:   "resolve <product-id>",
	Short: "Resolve compatible components for a CPU or motherboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mode, err := resolver.ParseMode(resolveMode)
		if err != nil {
			return err
		}

		env, err := initEngine(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Resolver.Resolve(ctx, args[0], mode)
		if err != nil {
			return err
		}

		return printJSON(result)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveMode, "mode", "strict", "resolution policy: strict or lenient")
	rootCmd.AddCommand(resolveCmd)
}
