// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 the s21ctl authors

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aircomm/s21ctl/pkg/s21"
)

var dumpHexOnly bool

var dumpCmd = &cobra.Command{
	Use:   "dump <capture-file>",
	Short: "Pretty-print a recorded line-traffic capture",
	Long: `Decode a capture file recorded with 'watch --capture' and print each
traffic record with its time offset, direction and both hex and escaped
text renderings of the bytes.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().BoolVar(&dumpHexOnly, "hex", false, "Print only the hex rendering")
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	records, err := s21.ReadCapture(f)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if dumpHexOnly {
			fmt.Printf("%8d ms  %s  %s\n",
				rec.OffsetMs, rec.Dir, s21.HexRepr(rec.Data))
			continue
		}
		fmt.Printf("%8d ms  %s  %-24s  %s\n",
			rec.OffsetMs, rec.Dir, s21.HexRepr(rec.Data), s21.StrRepr(rec.Data))
	}
	fmt.Printf("%d records\n", len(records))
	return nil
}
