// Package main implements the lstore CLI: a thin command surface over the
// localstore engine for inspecting and mutating a store directory.
package main

import (
	"fmt"
	"os"

	"localstore/internal/config"
	"localstore/internal/logging"
	"localstore/internal/store"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	dirFlag    string
	configFlag string
	verbose    bool
	folderFlag string

	cfg config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lstore",
	Short: "lstore - filesystem-backed key-value store",
	Long: `lstore stores one JSON document per key in a plain directory tree,
with atomic writes and automatic reconciliation of external file changes.

Keys are hashed to stable file names; folders map to subdirectories.
Point --dir at any store directory to read or mutate it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFlag)
		if err != nil {
			return err
		}
		if dirFlag != "" {
			cfg.Storage.Root = dirFlag
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		if err := logging.Initialize(level, cfg.Logging.Format); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Sync()
	},
}

// openStore opens the configured store directory for a one-shot command.
func openStore() (*store.Store, error) {
	opts := store.DefaultOptions()
	opts.SuppressionTTL = cfg.Storage.SuppressionWindow()
	opts.SweepStaleTemp = cfg.Storage.SweepStaleTemp

	st, err := store.Open(cfg.Storage.Root, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", cfg.Storage.Root, err)
	}
	return st, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dirFlag, "dir", "d", "", "store directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "localstore.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&folderFlag, "folder", "f", "", "folder (subdirectory) scoping the operation")

	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(copyCmd)
	rootCmd.AddCommand(rescanCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
