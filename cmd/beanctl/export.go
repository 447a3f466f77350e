package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"beanchain/history"
)

func newExportCmd() *cobra.Command {
	var driver, dsn, out string
	var from, to uint64
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export season history to a parquet file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(out) == "" {
				return fmt.Errorf("--out is required")
			}
			if to != 0 && to < from {
				return fmt.Errorf("--to %d before --from %d", to, from)
			}
			store, err := history.Open(driver, dsn)
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := store.ExportParquet(cmd.Context(), out, from, to)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s seasons to %s\n", humanize.Comma(int64(n)), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&driver, "driver", "sqlite", "history driver (sqlite or postgres)")
	cmd.Flags().StringVar(&dsn, "dsn", "./data/history.sqlite", "history database DSN")
	cmd.Flags().StringVar(&out, "out", "", "parquet output path")
	cmd.Flags().Uint64Var(&from, "from", 0, "first season")
	cmd.Flags().Uint64Var(&to, "to", 0, "last season, 0 for latest")
	return cmd
}
