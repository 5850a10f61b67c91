// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the s21ctl authors

package s21

import "testing"

func TestBytesToNum(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want int16
	}{
		{"zero", []byte{'0', '0', '0', '+'}, 0},
		{"ones digit", []byte{'7', '0', '0', '+'}, 7},
		{"all digits", []byte{'3', '2', '1', '+'}, 123},
		{"negative", []byte{'5', '0', '0', '-'}, -5},
		{"no sign byte", []byte{'7', '4', '1'}, 147},
		{"short", []byte{'1', '2'}, 0},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bytesToNum(tt.in); got != tt.want {
				t.Errorf("bytesToNum(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestTempC10FromHalfDeg(t *testing.T) {
	tests := []struct {
		in   byte
		want int16
	}{
		{178, 250},  // 25.0 C
		{148, 100},  // 10.0 C
		{128, 0},    // 0.0 C
		{108, -100}, // -10.0 C
		{129, 0},    // odd byte truncates to the lower half degree
	}
	for _, tt := range tests {
		if got := tempC10FromHalfDeg(tt.in); got != tt.want {
			t.Errorf("tempC10FromHalfDeg(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSetpointByteRoundTrip(t *testing.T) {
	// every half-degree setpoint in the usable range must survive the
	// encode/decode pair exactly
	for c10 := int16(100); c10 <= 320; c10 += 5 {
		b := c10ToSetpointByte(c10)
		if got := setpointFromByte(b); got != c10 {
			t.Errorf("round trip %d -> 0x%02X -> %d", c10, b, got)
		}
	}
}

func TestC10Conversions(t *testing.T) {
	if got := C10ToCelsius(225); got != 22.5 {
		t.Errorf("C10ToCelsius(225) = %v, want 22.5", got)
	}
	if got := C10ToCelsius(-15); got != -1.5 {
		t.Errorf("C10ToCelsius(-15) = %v, want -1.5", got)
	}
	if got := C10ToFahrenheit(0); got != 32 {
		t.Errorf("C10ToFahrenheit(0) = %v, want 32", got)
	}
	if got := C10ToFahrenheit(1000); got != 212 {
		t.Errorf("C10ToFahrenheit(1000) = %v, want 212", got)
	}
}
