package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mattsta/kvidxkit/internal/log"
)

var expireScanMax int

func init() {
	cmd := &cobra.Command{
		Use:   "expire-scan",
		Short: "Sweep expired keys out of the TTL index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpireScan()
		},
	}
	cmd.Flags().IntVar(&expireScanMax, "max", 0, "maximum keys to sweep (0 = unbounded)")
	rootCmd.AddCommand(cmd)
}

func runExpireScan() error {
	in, err := openInstance()
	if err != nil {
		return err
	}
	defer in.Close()

	n, err := in.ExpireScan(context.Background(), expireScanMax)
	if err != nil {
		log.L().Warn("expire scan failed", zap.Error(err))
		return err
	}
	log.L().Debug("expire scan removed keys", zap.Int64("count", n))
	fmt.Printf("removed %d expired keys\n", n)
	return nil
}
