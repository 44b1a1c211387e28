package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/espalier/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP editing server",
	Long:  `Serves the diagrams in --dir as a JSON API with HTML and Mermaid views, live snapshot events and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		opts := workspaceOptions(cmd)
		if opts.LogLevel == "" {
			opts.LogLevel = "info"
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		return cli.RunServe(ctx, cmd.OutOrStdout(), opts, ":"+port)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
