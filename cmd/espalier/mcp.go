package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/espalier/internal/cli"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the workspace over the Model Context Protocol",
	Long: `Exposes the diagrams in --dir to MCP clients as tools (list, inspect, reset,
edit, connect) and resources (espalier://diagrams/{id}).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		return cli.RunMCP(ctx, workspaceOptions(cmd), transport, port)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", cli.TransportStdio, "Transport: stdio or sse")
	mcpCmd.Flags().Int("port", 8081, "Port for the sse transport")
}
