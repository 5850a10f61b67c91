// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 the s21ctl authors

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/aircomm/s21ctl/pkg/s21"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "s21ctl",
	Short: "Daikin S21 protocol controller",
	Long: `s21ctl - A CLI tool for monitoring and controlling Daikin heat-pump
indoor units over the S21 serial protocol.

Provides commands for watching the unit's live state, an interactive
dashboard, one-shot setting changes and inspection of captured line traffic.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 2400]
  WebSocket: --url ws://host/path [--username user]

The serial line always runs 8 data bits, even parity, two stop bits as the
unit requires. For WebSocket authentication, the password is read from the
S21_PASSWORD environment variable, or prompted interactively if not set.
The --password flag is intentionally not provided to avoid leaking
credentials in shell history.`,
	Version: "1.2.0",
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", s21.BaudRate, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
