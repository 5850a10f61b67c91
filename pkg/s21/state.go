// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the s21ctl authors

package s21

// ClimateMode is the unit's operating mode. Values are the raw protocol
// bytes as they appear in F1/D1 payloads.
type ClimateMode byte

// Operating modes.
const (
	ModeDisabled ClimateMode = '0'
	ModeAuto     ClimateMode = '1'
	ModeDry      ClimateMode = '2'
	ModeCool     ClimateMode = '3'
	ModeHeat     ClimateMode = '4'
	ModeFan      ClimateMode = '6'
)

func (m ClimateMode) String() string {
	switch m {
	case ModeDisabled:
		return "Disabled"
	case ModeAuto:
		return "Auto"
	case ModeDry:
		return "Dry"
	case ModeCool:
		return "Cool"
	case ModeHeat:
		return "Heat"
	case ModeFan:
		return "Fan"
	default:
		return "UNKNOWN"
	}
}

// FanMode is the fan speed setting. Values are the raw protocol bytes.
type FanMode byte

// Fan modes. Silent is only reported by the dedicated RG query, not by F1.
const (
	FanAuto   FanMode = 'A'
	FanSilent FanMode = 'B'
	FanSpeed1 FanMode = '3'
	FanSpeed2 FanMode = '4'
	FanSpeed3 FanMode = '5'
	FanSpeed4 FanMode = '6'
	FanSpeed5 FanMode = '7'
)

func (f FanMode) String() string {
	switch f {
	case FanAuto:
		return "Auto"
	case FanSilent:
		return "Silent"
	case FanSpeed1:
		return "1"
	case FanSpeed2:
		return "2"
	case FanSpeed3:
		return "3"
	case FanSpeed4:
		return "4"
	case FanSpeed5:
		return "5"
	default:
		return "UNKNOWN"
	}
}

// Readiness marks which state groups have been populated at least once.
type Readiness uint8

// Readiness flags.
const (
	ReadyBasic Readiness = 1 << iota
	ReadySwing
	ReadyCompressor
)

// Has reports whether all the given flags are set.
func (r Readiness) Has(flags Readiness) bool {
	return r&flags == flags
}

// DeviceState is the decoded, externally visible view of the unit. All
// temperatures and the setpoint are in tenths of a degree Celsius.
type DeviceState struct {
	PowerOn  bool
	Mode     ClimateMode
	Setpoint int16
	Fan      FanMode
	SwingV   bool
	SwingH   bool

	TempInside  int16
	TempOutside int16
	TempCoil    int16

	FanRPM       int
	CompressorHz int
	SwingAngle   int16

	Ready Readiness
}

// Settings is a requested climate change. Setpoint is in degrees Celsius
// and is rounded to the nearest 0.5 degree when encoded.
type Settings struct {
	PowerOn  bool
	Mode     ClimateMode
	Setpoint float64
	Fan      FanMode
}
