package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mattsta/kvidxkit/kvidx"
)

func init() {
	rootCmd.AddCommand(newTTLGetCmd(), newTTLSetCmd(), newTTLPersistCmd())
}

func newTTLGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ttl <key>",
		Short: "Print the remaining TTL for a key in milliseconds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid key %q: %w", args[0], err)
			}
			in, err := openInstance()
			if err != nil {
				return err
			}
			defer in.Close()

			ttl, err := in.GetTTL(key)
			if err != nil {
				return err
			}
			switch ttl {
			case kvidx.TTLNone:
				fmt.Println("no expiry set")
			case kvidx.TTLNotFound:
				fmt.Println("key not found")
			default:
				fmt.Printf("%dms remaining\n", ttl)
			}
			return nil
		},
	}
}

func newTTLSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ttl-set <key> <ms>",
		Short: "Set a relative expiry in milliseconds for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid key %q: %w", args[0], err)
			}
			ttlMs, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid ttl %q: %w", args[1], err)
			}
			in, err := openInstance()
			if err != nil {
				return err
			}
			defer in.Close()
			return in.SetExpire(key, ttlMs)
		},
	}
}

func newTTLPersistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ttl-persist <key>",
		Short: "Clear a key's expiry, making it permanent again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid key %q: %w", args[0], err)
			}
			in, err := openInstance()
			if err != nil {
				return err
			}
			defer in.Close()
			return in.Persist(key)
		},
	}
}
