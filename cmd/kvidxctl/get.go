package main

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var getHex bool

func init() {
	cmd := newGetCmd()
	cmd.Flags().BoolVar(&getHex, "hex", false, "print payload as hex instead of raw bytes")
	rootCmd.AddCommand(cmd)
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get the term/cmd/payload stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(args)
		},
	}
}

func runGet(args []string) error {
	key, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid key %q: %w", args[0], err)
	}

	in, err := openInstance()
	if err != nil {
		return err
	}
	defer in.Close()

	term, cmd, data, ok, err := in.Get(key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("key %d not found", key)
	}

	if jsonOut {
		return printJSON(map[string]any{
			"key":     key,
			"term":    term,
			"cmd":     cmd,
			"payload": encodePayload(data),
		})
	}
	if getHex {
		fmt.Printf("key=%d term=%d cmd=%d payload=%s\n", key, term, cmd, hex.EncodeToString(data))
	} else {
		fmt.Printf("key=%d term=%d cmd=%d payload=%q\n", key, term, cmd, data)
	}
	return nil
}

func encodePayload(data []byte) string {
	if getHex {
		return hex.EncodeToString(data)
	}
	return string(data)
}
