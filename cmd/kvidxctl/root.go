package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mattsta/kvidxkit/internal/log"
	"github.com/mattsta/kvidxkit/kvidx"
)

var (
	backend string
	path    string
	jsonOut bool
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "kvidxctl",
	Short: "Inspect and manipulate kvidxkit ordered key-value stores",
	Long: `kvidxctl opens an embedded kvidxkit store and exposes its operations
as subcommands: get, put, rm, range, export, import, stats, and ttl.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "mem", "storage backend (mem, sqlite, bolt, badger)")
	rootCmd.PersistentFlags().StringVar(&path, "path", "", "store path (file or directory, depending on backend)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		log.Init(verbose)
	}
}

func execute() {
	defer log.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openInstance opens the configured backend against the configured path,
// used by every subcommand that touches a store.
func openInstance() (*kvidx.Instance, error) {
	in, err := kvidx.Open(backend, path, kvidx.DefaultConfig())
	if err != nil {
		log.L().Warn("failed to open store", zap.String("backend", backend), zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("open %s backend at %q: %w", backend, path, err)
	}
	log.L().Debug("opened store", zap.String("backend", backend), zap.String("path", path))
	return in, nil
}

func printVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
