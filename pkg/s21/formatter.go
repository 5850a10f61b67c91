// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the s21ctl authors

package s21

import (
	"fmt"
	"strings"
)

// HexRepr formats bytes as colon-separated hex, e.g. "02:47:31:03".
func HexRepr(data []byte) string {
	var sb strings.Builder
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(':')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// StrRepr formats bytes as printable text with C-style escapes for control
// characters, useful for the protocol's mixed ASCII/binary payloads.
func StrRepr(data []byte) string {
	var sb strings.Builder
	for _, b := range data {
		switch b {
		case '\a':
			sb.WriteString(`\a`)
		case '\b':
			sb.WriteString(`\b`)
		case '\t':
			sb.WriteString(`\t`)
		case '\n':
			sb.WriteString(`\n`)
		case '\v':
			sb.WriteString(`\v`)
		case '\f':
			sb.WriteString(`\f`)
		case '\r':
			sb.WriteString(`\r`)
		case 0x1B:
			sb.WriteString(`\e`)
		case '"':
			sb.WriteString(`\"`)
		case '\'':
			sb.WriteString(`\'`)
		case '\\':
			sb.WriteString(`\\`)
		default:
			if b < 0x20 || b > 0x7F {
				fmt.Fprintf(&sb, `\x%02X`, b)
			} else {
				sb.WriteByte(b)
			}
		}
	}
	return sb.String()
}

// FormatState renders a device-state snapshot as a multi-line summary.
func FormatState(s DeviceState) string {
	power := "off"
	if s.PowerOn {
		power = "on"
	}
	activity := "active"
	if !s.PowerOn || s.Mode == ModeDisabled || s.Setpoint <= s.TempInside {
		activity = "idle"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "  Power: %s\n", power)
	fmt.Fprintf(&sb, "   Mode: %s (%s)\n", s.Mode, activity)
	fmt.Fprintf(&sb, " Target: %.1f C (%.1f F)\n", C10ToCelsius(s.Setpoint), C10ToFahrenheit(s.Setpoint))
	fmt.Fprintf(&sb, "    Fan: %s (%d rpm)\n", s.Fan, s.FanRPM)
	fmt.Fprintf(&sb, "  Swing: H:%t V:%t\n", s.SwingH, s.SwingV)
	fmt.Fprintf(&sb, " Inside: %.1f C (%.1f F)\n", C10ToCelsius(s.TempInside), C10ToFahrenheit(s.TempInside))
	fmt.Fprintf(&sb, "Outside: %.1f C (%.1f F)\n", C10ToCelsius(s.TempOutside), C10ToFahrenheit(s.TempOutside))
	fmt.Fprintf(&sb, "   Coil: %.1f C (%.1f F)\n", C10ToCelsius(s.TempCoil), C10ToFahrenheit(s.TempCoil))
	fmt.Fprintf(&sb, "  Compr: %d Hz\n", s.CompressorHz)
	return sb.String()
}
