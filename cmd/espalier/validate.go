package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/espalier/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate [diagram-id...]",
	Short: "Check diagram definitions for consistency",
	Long:  `Parses every definition in --dir (or only the given ones) and reports unknown types, bad fields and dangling connections.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if err := cli.RunValidate(cmd.OutOrStdout(), dir, args); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Definitions are valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
