// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 the s21ctl authors

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aircomm/s21ctl/pkg/s21"
)

var (
	setPower    string
	setMode     string
	setTemp     float64
	setFan      string
	setSwingV   bool
	setSwingH   bool
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Apply a one-shot settings change",
	Long: `Change the unit's settings and exit.

The current state is read first so that unspecified settings keep their
present values, then the climate and/or swing write is transmitted and
confirmed by a refresh scan.

Examples:
  s21ctl set --port /dev/ttyUSB0 --power on --mode heat --temp 22.5
  s21ctl set --port /dev/ttyUSB0 --fan silent
  s21ctl set --port /dev/ttyUSB0 --swing-v --swing-h=false`,
	RunE: runSet,
}

func init() {
	setCmd.Flags().StringVar(&setPower, "power", "", "Power state: on or off")
	setCmd.Flags().StringVar(&setMode, "mode", "", "Operating mode: auto, dry, cool, heat, fan")
	setCmd.Flags().Float64Var(&setTemp, "temp", 0, "Target temperature in degrees Celsius")
	setCmd.Flags().StringVar(&setFan, "fan", "", "Fan mode: auto, silent, 1-5")
	setCmd.Flags().BoolVar(&setSwingV, "swing-v", false, "Vertical louver swing")
	setCmd.Flags().BoolVar(&setSwingH, "swing-h", false, "Horizontal louver swing")
	rootCmd.AddCommand(setCmd)
}

func parseMode(s string) (s21.ClimateMode, error) {
	switch strings.ToLower(s) {
	case "auto":
		return s21.ModeAuto, nil
	case "dry":
		return s21.ModeDry, nil
	case "cool":
		return s21.ModeCool, nil
	case "heat":
		return s21.ModeHeat, nil
	case "fan":
		return s21.ModeFan, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

func parseFan(s string) (s21.FanMode, error) {
	switch strings.ToLower(s) {
	case "auto":
		return s21.FanAuto, nil
	case "silent":
		return s21.FanSilent, nil
	case "1":
		return s21.FanSpeed1, nil
	case "2":
		return s21.FanSpeed2, nil
	case "3":
		return s21.FanSpeed3, nil
	case "4":
		return s21.FanSpeed4, nil
	case "5":
		return s21.FanSpeed5, nil
	default:
		return 0, fmt.Errorf("unknown fan mode %q", s)
	}
}

func runSet(cmd *cobra.Command, args []string) error {
	climateChange := setPower != "" || setMode != "" ||
		cmd.Flags().Changed("temp") || setFan != ""
	swingChange := cmd.Flags().Changed("swing-v") || cmd.Flags().Changed("swing-h")
	if !climateChange && !swingChange {
		return fmt.Errorf("nothing to change: pass at least one of --power, --mode, --temp, --fan, --swing-v, --swing-h")
	}

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

	drv := s21.NewDriver(s21.NewTransport(newPumpPort(conn), log), log)
	fmt.Printf("Connection: %s\n", connInfo)

	// first scan: learn the current state so unspecified settings carry over
	if err := tickUntil(drv, 30*time.Second, drv.IsReady); err != nil {
		return fmt.Errorf("unit not responding: %v", err)
	}

	state := drv.State()
	if climateChange {
		settings := s21.Settings{
			PowerOn:  state.PowerOn,
			Mode:     state.Mode,
			Setpoint: s21.C10ToCelsius(state.Setpoint),
			Fan:      state.Fan,
		}
		if setPower != "" {
			switch strings.ToLower(setPower) {
			case "on":
				settings.PowerOn = true
			case "off":
				settings.PowerOn = false
			default:
				return fmt.Errorf("invalid --power %q, use on or off", setPower)
			}
		}
		if setMode != "" {
			if settings.Mode, err = parseMode(setMode); err != nil {
				return err
			}
			// selecting a mode without --power turns the unit on
			if setPower == "" {
				settings.PowerOn = true
			}
		}
		if cmd.Flags().Changed("temp") {
			settings.Setpoint = setTemp
		}
		if setFan != "" {
			if settings.Fan, err = parseFan(setFan); err != nil {
				return err
			}
		}
		drv.SetClimate(settings)
	}
	if swingChange {
		v, h := state.SwingV, state.SwingH
		if cmd.Flags().Changed("swing-v") {
			v = setSwingV
		}
		if cmd.Flags().Changed("swing-h") {
			h = setSwingH
		}
		drv.SetSwing(v, h)
	}

	if err := tickUntil(drv, 10*time.Second, func() bool { return !drv.PendingWrite() }); err != nil {
		return fmt.Errorf("settings change not confirmed: %v", err)
	}

	// the acknowledged write schedules a refresh; wait for that scan to
	// finish so the printed state reflects the change. If a scan was
	// interrupted by the write it completes first.
	target := drv.Scans() + 1
	if drv.ScanInProgress() {
		target++
	}
	if err := tickUntil(drv, 30*time.Second, func() bool { return drv.Scans() >= target }); err != nil {
		return err
	}
	fmt.Println(s21.FormatState(drv.State()))
	return nil
}

// tickUntil drives the engine until cond holds or the deadline passes.
func tickUntil(drv *s21.Driver, limit time.Duration, cond func() bool) error {
	deadline := time.Now().Add(limit)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for range tick.C {
		drv.Tick()
		if cond() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out after %s", limit)
		}
	}
	return nil
}
