package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mattsta/kvidxkit/kvidx"
)

var (
	putTerm int64
	putCmd  int64
)

func init() {
	cmd := newPutCmd()
	cmd.Flags().Int64Var(&putTerm, "term", 0, "term metadata field")
	cmd.Flags().Int64Var(&putCmd, "cmd", 0, "cmd metadata field")
	rootCmd.AddCommand(cmd)
}

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <key> <payload>",
		Short: "Insert or overwrite the record stored under a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(args)
		},
	}
}

func runPut(args []string) error {
	key, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid key %q: %w", args[0], err)
	}

	in, err := openInstance()
	if err != nil {
		return err
	}
	defer in.Close()

	if err := in.InsertEx(key, uint64(putTerm), uint64(putCmd), []byte(args[1]), kvidx.Always); err != nil {
		return err
	}
	printVerbose("inserted key=%d\n", key)
	return nil
}
