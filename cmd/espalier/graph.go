package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/espalier/internal/cli"
	"github.com/aretw0/espalier/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <diagram-id>",
	Short: "Export the diagram as a Mermaid flowchart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		selected, _ := cmd.Flags().GetString("selected")
		editing, _ := cmd.Flags().GetBool("editing")

		var overlay *graph.GraphOverlay
		if selected != "" || editing {
			overlay = &graph.GraphOverlay{Selected: selected, Editing: editing}
		}
		return cli.RunGraph(cmd.Context(), cmd.OutOrStdout(), workspaceOptions(cmd), args[0], overlay)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("selected", "", "Highlight a slot")
	graphCmd.Flags().Bool("editing", false, "Highlight nodes in edit mode")
}
