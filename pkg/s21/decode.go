// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the s21ctl authors

package s21

import "math"

// bytesToNum decodes the protocol's decimal layout:
// <ones><tens><hundreds> digit bytes followed by an optional sign byte
// ('-' for negative). Short payloads decode as zero.
func bytesToNum(b []byte) int16 {
	if len(b) < 3 {
		return 0
	}
	v := int16(b[0]-'0') + int16(b[1]-'0')*10 + int16(b[2]-'0')*100
	if len(b) > 3 && b[3] == '-' {
		v = -v
	}
	return v
}

// tempC10 decodes a digits-plus-sign temperature payload to tenths of a
// degree Celsius.
func tempC10(b []byte) int16 {
	return bytesToNum(b)
}

// tempC10FromHalfDeg decodes the single-byte half-degree encoding used by
// F9: the byte holds (celsius + 64) * 2.
func tempC10FromHalfDeg(b byte) int16 {
	return (int16(b)/2 - 64) * 10
}

// c10ToSetpointByte converts tenths of a degree Celsius to the
// offset-and-scale setpoint byte carried in F1/D1 payloads.
func c10ToSetpointByte(c10 int16) byte {
	return byte((c10+3)/5 + 28)
}

// setpointFromByte is the inverse of c10ToSetpointByte, back to tenths.
func setpointFromByte(b byte) int16 {
	return (int16(b) - 28) * 5
}

// setpointByte rounds a requested setpoint in degrees Celsius to the
// nearest 0.5 degree and encodes it.
func setpointByte(degC float64) byte {
	c10 := int16(math.Round(math.Round(degC*2) / 2 * 10))
	return c10ToSetpointByte(c10)
}

// C10ToCelsius converts tenths of a degree to degrees Celsius.
func C10ToCelsius(c10 int16) float64 {
	return float64(c10) / 10
}

// C10ToFahrenheit converts tenths of a degree Celsius to degrees Fahrenheit.
func C10ToFahrenheit(c10 int16) float64 {
	return C10ToCelsius(c10)*1.8 + 32
}
