// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the s21ctl authors

// Package s21 implements the Daikin S21 half-duplex serial protocol used by
// residential heat-pump indoor units.
//
// The package provides the wire-level frame transport (framing, checksum,
// acknowledgement handling and timing-based error recovery) and the
// transaction driver that polls the unit, decodes replies into a typed
// device-state snapshot and applies climate/swing change requests. Both run
// cooperatively inside a single periodically invoked tick; nothing blocks.
package s21

import "time"

// Control bytes on the wire.
const (
	STX byte = 0x02 // frame start
	ETX byte = 0x03 // frame end
	ENQ byte = 0x05 // checksum escape, substituted when the sum collides with STX
	ACK byte = 0x06
	NAK byte = 0x15
)

// Frame size limits.
const (
	MaxCommandSize = 2 // command identifier, printable characters
	PayloadSize    = 4 // write payloads are always four bytes

	maxResponseSize = MaxCommandSize + PayloadSize + 1 // +1 for checksum byte
)

// Protocol timing. All timeouts are measured against the last
// state-transition or last-byte-received timestamp.
const (
	// ResponseTimeout bounds the wait for any reply byte before the
	// in-flight transaction is abandoned.
	ResponseTimeout = 250 * time.Millisecond

	// ResponseTurnaround is the quiet period after a successful exchange
	// or an explicit NAK.
	ResponseTurnaround = 100 * time.Millisecond

	// ErrorCooldown is the longer quiet period after a protocol violation,
	// giving the unit time to settle before the next attempt.
	ErrorCooldown = 3 * time.Second
)

// Serial line settings of the S21 port. The line is 2400 baud, 8 data bits,
// even parity, two stop bits.
const (
	BaudRate = 2400
	DataBits = 8
)

// Write command identifiers.
const (
	cmdClimate = "D1" // power / mode / setpoint / fan
	cmdSwing   = "D5" // louver swing flags
)

// DefaultQueries is the startup polling set. Redundant or lower-resolution
// alternatives (RC, RF, RB) are intentionally absent.
var DefaultQueries = []string{
	"F1", "F5", "F9",
	"Rd", "RH", "RI", "Ra", "RL", "RG",
}

// ExperimentalQueries are identifiers observed being polled by Daikin's own
// BRP controllers. Compiled in for protocol exploration but excluded from
// the default pool; enable with WithExperimentalQueries.
var ExperimentalQueries = []string{
	"F2", "F3", "F4",
	"RN", "RX", "RD", "M",
}
