package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "rm <key>",
		Short: "Remove the record stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRm(args)
		},
	})
}

func runRm(args []string) error {
	key, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid key %q: %w", args[0], err)
	}

	in, err := openInstance()
	if err != nil {
		return err
	}
	defer in.Close()

	if err := in.Remove(key); err != nil {
		return err
	}
	printVerbose("removed key=%d\n", key)
	return nil
}
