package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/espalier/internal/cli"
)

var diagramCmd = &cobra.Command{
	Use:   "diagram",
	Short: "Manage saved diagrams",
	Long:  `List, inspect, and remove the diagrams saved by the editing server.`,
}

var diagramLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all diagrams",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.RunList(cmd.Context(), cmd.OutOrStdout(), workspaceOptions(cmd))
	},
}

var diagramInspectCmd = &cobra.Command{
	Use:   "inspect <diagram-id>",
	Short: "Print the snapshot of a diagram as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.RunInspect(cmd.Context(), cmd.OutOrStdout(), workspaceOptions(cmd), args[0])
	},
}

var diagramRmCmd = &cobra.Command{
	Use:   "rm <diagram-id>...",
	Short: "Discard the saved edits of one or more diagrams",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.RunRemove(cmd.Context(), cmd.OutOrStdout(), workspaceOptions(cmd), args)
	},
}

func init() {
	rootCmd.AddCommand(diagramCmd)
	diagramCmd.AddCommand(diagramLsCmd)
	diagramCmd.AddCommand(diagramInspectCmd)
	diagramCmd.AddCommand(diagramRmCmd)
}
