package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/espalier"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of espalier",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "espalier version %s\n", strings.TrimSpace(espalier.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
