// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 the s21ctl authors

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aircomm/s21ctl/pkg/s21"
)

var (
	watchInterval time.Duration
	watchCapture  string
	watchDebug    bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously poll and print the unit's state",
	Long: `Poll the unit's state and print a summary whenever a full scan completes.

Each scan walks the query pool; queries the unit rejects are pruned
automatically, and once dedicated temperature sensors have been observed
the coarse combined query is dropped from subsequent scans.

With --capture, all line traffic is additionally recorded to a file for
later inspection with the dump command.

Supports both serial and WebSocket connections.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 5*time.Second, "Delay between state refreshes")
	watchCmd.Flags().StringVar(&watchCapture, "capture", "", "Record line traffic to this file")
	watchCmd.Flags().BoolVar(&watchDebug, "protocol-debug", false, "Log payload changes per response code")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	log, cleanup, err := newLogger()
	if err != nil {
		return err
	}
	defer cleanup()

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	var port s21.Port = newPumpPort(conn)
	if watchCapture != "" {
		f, err := os.Create(watchCapture)
		if err != nil {
			return fmt.Errorf("failed to create capture file: %v", err)
		}
		defer f.Close()
		port = s21.NewTapPort(port, s21.NewCaptureWriter(f), log)
	}

	var opts []s21.Option
	if watchDebug {
		opts = append(opts, s21.WithProtocolDebug())
	}
	drv := s21.NewDriver(s21.NewTransport(port, log), log, opts...)

	fmt.Printf("s21ctl - State Watch\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	refresh := time.NewTicker(watchInterval)
	defer refresh.Stop()

	printed := false
	for {
		select {
		case <-sig:
			drv.Stats().CalculateRates()
			fmt.Printf("\n%s\n", drv.Stats())
			return nil
		case <-refresh.C:
			drv.RequestRefresh()
			printed = false
		case <-tick.C:
			drv.Tick()
			if !printed && drv.IsReady() && !drv.PendingWrite() {
				fmt.Println(s21.FormatState(drv.State()))
				printed = true
			}
		}
	}
}
