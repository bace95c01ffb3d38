package main

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Inspect and manually override compatibility records",
}

var recordGetCmd = &cobra.Command{
	Use:   "get <product-id>",
	Short: "Print one compatibility record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEngine(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.Store.GetRecord(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

var recordSetCmd = &cobra.Command{
	Use:   "set <product-id> <field=value>...",
	Short: "Apply a manual override",
	Long: "Validates and applies field overrides to one record. The record takes manual " +
		"provenance and confidence 1.00, and subsequent automatic re-extraction will not " +
		"revert it (extract --force does).",
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		fields, err := parseFieldArgs(args[1:])
		if err != nil {
			return err
		}

		env, err := initEngine(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.Store.ApplyManualOverride(ctx, args[0], fields)
		if err != nil {
			return err
		}
		zap.L().Info("manual override applied",
			zap.String("product_id", rec.ProductID),
			zap.Int("fields", len(fields)),
		)
		return printJSON(rec)
	},
}

var recordDeleteCmd = &cobra.Command{
	Use:   "delete <product-id>",
	Short: "Delete one compatibility record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEngine(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		return env.Store.DeleteRecord(ctx, args[0])
	},
}

// parseFieldArgs turns field=value arguments into a typed patch payload.
// Integers and booleans are detected by value shape; everything else
// stays a string.
func parseFieldArgs(args []string) (map[string]any, error) {
	fields := make(map[string]any, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, eris.Errorf("expected field=value, got %q", arg)
		}
		if n, err := strconv.Atoi(raw); err == nil {
			fields[name] = n
			continue
		}
		if b, err := strconv.ParseBool(raw); err == nil {
			fields[name] = b
			continue
		}
		fields[name] = raw
	}
	return fields, nil
}

func init() {
	recordCmd.AddCommand(recordGetCmd, recordSetCmd, recordDeleteCmd)
	rootCmd.AddCommand(recordCmd)
}
