package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print aggregate statistics for the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	})
}

func runStats() error {
	in, err := openInstance()
	if err != nil {
		return err
	}
	defer in.Close()

	stats, err := in.GetStats()
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(stats)
	}
	fmt.Printf("keys=%d minKey=%d maxKey=%d dataBytes=%d fileSize=%d\n",
		stats.TotalKeys, stats.MinKey, stats.MaxKey, stats.TotalDataBytes, stats.DatabaseFileSize)
	return nil
}
