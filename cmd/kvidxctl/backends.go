package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsta/kvidxkit/kvidx"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "backends",
		Short: "List registered storage backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackends()
		},
	})
}

func runBackends() error {
	entries := kvidx.Backends()
	if jsonOut {
		return printJSON(entries)
	}
	for i, e := range entries {
		fmt.Printf("%d: %-10s suffix=%-8s directory=%v\n", i, e.Name, e.PathSuffix, e.IsDirectory)
	}
	return nil
}
