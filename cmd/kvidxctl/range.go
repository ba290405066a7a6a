package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mattsta/kvidxkit/kvidx"
)

var rangeReverse bool

func init() {
	cmd := &cobra.Command{
		Use:   "range <start> <end>",
		Short: "List every key in [start, end] in order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRange(args)
		},
	}
	cmd.Flags().BoolVar(&rangeReverse, "reverse", false, "iterate from end down to start")
	rootCmd.AddCommand(cmd)
}

func runRange(args []string) error {
	start, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid start %q: %w", args[0], err)
	}
	end, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid end %q: %w", args[1], err)
	}

	in, err := openInstance()
	if err != nil {
		return err
	}
	defer in.Close()

	dir := kvidx.Forward
	if rangeReverse {
		dir = kvidx.Backward
	}
	it, err := in.NewIterator(kvidx.IterOptions{Start: start, End: end, Dir: dir})
	if err != nil {
		return err
	}
	defer it.Close()

	for it.Next() {
		key, term, cmd, data, err := it.Get()
		if err != nil {
			return err
		}
		if jsonOut {
			if err := printJSON(map[string]any{"key": key, "term": term, "cmd": cmd, "payload": string(data)}); err != nil {
				return err
			}
			continue
		}
		fmt.Printf("key=%d term=%d cmd=%d payload=%q\n", key, term, cmd, data)
	}
	return nil
}
