package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/espalier/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "espalier",
	Short: "Espalier is a diagram editor for dialogue flows",
	Long: `Espalier edits dialogue flow diagrams: slots holding typed nodes, linked by
connections between their endpoints. Diagrams are defined in YAML or JSON files
and served over HTTP for editing.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("dir", ".", "Directory containing the diagram definitions")
	flags.String("loader", cli.LoaderFile, "How --dir is read: file or loam (adds Markdown front matter)")
	flags.String("store-dir", "", "Directory for saved diagrams (default <dir>/.espalier/diagrams)")
	flags.Bool("memory", false, "Keep edited diagrams in memory only")
	flags.String("redis-addr", "", "Redis address for saved diagrams and distributed locks")
	flags.String("redis-password", "", "Redis password")
	flags.Int("redis-db", 0, "Redis database")
	flags.String("encryption-key", os.Getenv("ESPALIER_ENCRYPTION_KEY"), "Base64 AES-256 key sealing saved diagrams")
	flags.StringSlice("redact", nil, "Regular expressions of field names masked in saved diagrams")
	flags.String("log-level", "", "Log level (debug, info, warn, error); empty disables logs")
}

// workspaceOptions reads the persistent flags.
func workspaceOptions(cmd *cobra.Command) cli.Options {
	flags := cmd.Flags()
	opts := cli.Options{}
	opts.Dir, _ = flags.GetString("dir")
	opts.Loader, _ = flags.GetString("loader")
	opts.StoreDir, _ = flags.GetString("store-dir")
	opts.Memory, _ = flags.GetBool("memory")
	opts.RedisAddr, _ = flags.GetString("redis-addr")
	opts.RedisPassword, _ = flags.GetString("redis-password")
	opts.RedisDB, _ = flags.GetInt("redis-db")
	opts.LogLevel, _ = flags.GetString("log-level")
	opts.EncryptionKey, _ = flags.GetString("encryption-key")
	opts.Redact, _ = flags.GetStringSlice("redact")
	return opts
}
