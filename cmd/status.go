package main

import (
	"github.com/spf13/cobra"
)

var (
	statusLookback int
	runsLimit      int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show extraction health metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEngine(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		snap, err := env.Collector.Collect(ctx, statusLookback)
		if err != nil {
			return err
		}
		return printJSON(snap)
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent extraction runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEngine(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		runs, err := env.Store.ListRuns(ctx, runsLimit)
		if err != nil {
			return err
		}
		return printJSON(runs)
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLookback, "lookback-runs", 50, "runs to aggregate")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	rootCmd.AddCommand(statusCmd, runsCmd)
}
