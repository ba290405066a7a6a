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
	exportFormat      string
	exportOut         string
	exportIncludeMeta bool
	exportPretty      bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the entire store to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport()
		},
	}
	cmd.Flags().StringVar(&exportFormat, "format", "binary", "export dialect: binary, json, csv")
	cmd.Flags().StringVar(&exportOut, "out", "", "output file (required)")
	cmd.Flags().BoolVar(&exportIncludeMeta, "include-meta", true, "include term/cmd columns/fields")
	cmd.Flags().BoolVar(&exportPretty, "pretty", false, "pretty-print JSON output")
	_ = cmd.MarkFlagRequired("out")
	rootCmd.AddCommand(cmd)
}

func parseFormat(s string) (codec.Format, error) {
	switch s {
	case "binary", "":
		return codec.Binary, nil
	case "json":
		return codec.JSON, nil
	case "csv":
		return codec.CSV, nil
	default:
		return 0, fmt.Errorf("unknown export format %q", s)
	}
}

func runExport() error {
	format, err := parseFormat(exportFormat)
	if err != nil {
		return err
	}

	in, err := openInstance()
	if err != nil {
		return err
	}
	defer in.Close()

	f, err := os.Create(exportOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", exportOut, err)
	}
	defer f.Close()

	opts := codec.ExportOptions{
		Format:      format,
		Pretty:      exportPretty,
		IncludeMeta: exportIncludeMeta,
	}
	if verbose {
		opts.Progress = func(current, total int64) bool {
			printVerbose("exported %d/%d\n", current, total)
			return true
		}
	}

	if err := in.Export(f, 0, ^uint64(0), opts); err != nil {
		log.L().Warn("export failed", zap.String("file", exportOut), zap.String("format", exportFormat), zap.Error(err))
		return err
	}
	log.L().Info("export complete", zap.String("file", exportOut), zap.String("format", exportFormat))
	printVerbose("exported to %s\n", exportOut)
	return nil
}
