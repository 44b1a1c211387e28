package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/espalier/internal/cli"
)

var previewCmd = &cobra.Command{
	Use:   "preview <diagram-id>",
	Short: "Print a readable summary of a diagram",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.RunPreview(cmd.Context(), os.Stdout, workspaceOptions(cmd), args[0])
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
}
