package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mattsta/kvidxkit/internal/log"
	"github.com/mattsta/kvidxkit/kvidx/codec"
)

var (
	importIn             string
	importClearBefore    bool
	importSkipDuplicates bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a Binary v1 export file into the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport()
		},
	}
	cmd.Flags().StringVar(&importIn, "in", "", "input file (required)")
	cmd.Flags().BoolVar(&importClearBefore, "clear", false, "wipe the store before importing")
	cmd.Flags().BoolVar(&importSkipDuplicates, "skip-duplicates", false, "skip keys that already exist instead of erroring")
	_ = cmd.MarkFlagRequired("in")
	rootCmd.AddCommand(cmd)
}

func runImport() error {
	in, err := openInstance()
	if err != nil {
		return err
	}
	defer in.Close()

	f, err := os.Open(importIn)
	if err != nil {
		return fmt.Errorf("open %s: %w", importIn, err)
	}
	defer f.Close()

	opts := codec.ImportOptions{
		ClearBeforeImport: importClearBefore,
		SkipDuplicates:    importSkipDuplicates,
	}
	if verbose {
		opts.Progress = func(current, total int64) bool {
			printVerbose("imported %d/%d\n", current, total)
			return true
		}
	}

	if err := in.Import(f, opts); err != nil {
		log.L().Warn("import failed", zap.String("file", importIn), zap.Error(err))
		return err
	}
	log.L().Info("import complete", zap.String("file", importIn))
	printVerbose("imported from %s\n", importIn)
	return nil
}
