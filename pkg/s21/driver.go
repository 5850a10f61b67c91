// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the s21ctl authors

package s21

import (
	"bytes"
	"slices"
)

// Driver runs the polling transaction loop on top of a Transport: it walks
// the query pool, decodes replies into a DeviceState snapshot, and injects
// pending climate/swing writes ahead of the next query. All methods must be
// called from the same goroutine as Tick.
type Driver struct {
	serial *Transport
	log    Logger
	stats  *Statistics

	queries   []string
	cursor    int
	txCommand string
	refresh   bool
	scans     uint64

	active  DeviceState
	pending Settings

	pendingSwingV bool
	pendingSwingH bool

	activateClimate bool
	activateSwing   bool

	// Capability flags, learned from successful replies. Once a
	// finer-grained source responds, the coarse G9/G1 fields for the same
	// value are ignored.
	supportRG bool
	supportRH bool
	supportRa bool

	debugChanges bool
	lastValues   map[string][]byte
}

// Option configures a Driver at construction time.
type Option func(*Driver)

// WithQueries replaces the default query pool.
func WithQueries(queries ...string) Option {
	return func(d *Driver) {
		d.queries = slices.Clone(queries)
	}
}

// WithExperimentalQueries appends the experimental identifiers to the pool.
func WithExperimentalQueries() Option {
	return func(d *Driver) {
		d.queries = append(d.queries, ExperimentalQueries...)
	}
}

// WithProtocolDebug logs every payload change per response code, useful when
// mapping unknown queries on a new unit.
func WithProtocolDebug() Option {
	return func(d *Driver) {
		d.debugChanges = true
	}
}

// NewDriver creates a driver over an established transport. A nil log
// disables logging.
func NewDriver(serial *Transport, log Logger, opts ...Option) *Driver {
	if log == nil {
		log = NopLogger{}
	}
	d := &Driver{
		serial:     serial,
		log:        log,
		stats:      NewStatistics(),
		queries:    slices.Clone(DefaultQueries),
		lastValues: make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(d)
	}
	// cursor starts at 0 so the first scan begins immediately.
	return d
}

// State returns a copy of the last decoded device state.
func (d *Driver) State() DeviceState {
	return d.active
}

// Stats returns the live statistics tracker.
func (d *Driver) Stats() *Statistics {
	return d.stats
}

// Scans returns the number of query scans completed so far. Callers can use
// it to wait for a state snapshot newer than some event, such as the
// refresh scan that follows an acknowledged write.
func (d *Driver) Scans() uint64 {
	return d.scans
}

// ScanInProgress reports whether a query scan is currently underway.
func (d *Driver) ScanInProgress() bool {
	return d.cursor < len(d.queries)
}

// IsReady reports whether enough of the state has been observed to act on.
func (d *Driver) IsReady() bool {
	return d.active.Ready.Has(ReadyBasic | ReadyCompressor)
}

// IsIdle reports whether the unit is powered but not actively conditioning.
func (d *Driver) IsIdle() bool {
	return !d.active.PowerOn || d.active.Mode == ModeDisabled ||
		d.active.Setpoint <= d.active.TempInside
}

// PendingWrite reports whether a climate or swing change is still queued.
func (d *Driver) PendingWrite() bool {
	return d.activateClimate || d.activateSwing
}

// SetClimate queues a power/mode/setpoint/fan change. It is transmitted
// before the next query and confirmed by a follow-up refresh scan.
func (d *Driver) SetClimate(s Settings) {
	d.pending = s
	d.activateClimate = true
}

// SetSwing queues a louver swing change.
func (d *Driver) SetSwing(vertical, horizontal bool) {
	d.pendingSwingV = vertical
	d.pendingSwingH = horizontal
	d.activateSwing = true
}

// RequestRefresh restarts the query scan from the top once the current
// transaction completes.
func (d *Driver) RequestRefresh() {
	d.refresh = true
}

// Tick advances the transport and the transaction loop by one step. Call it
// frequently; it never blocks.
func (d *Driver) Tick() Result {
	result := d.serial.Tick()
	d.stats.Update(result)

	switch result {
	case Ack:
		d.log.Debugf("ACK for %s", d.txCommand)
		d.parseAck()
	case Idle:
		d.txNext()
	case Nak:
		d.handleNak()
	case Error:
		d.log.Errorf("protocol error during %s, aborting scan", d.txCommand)
		d.cursor = len(d.queries)
		d.refresh = true
		d.activateClimate = false
		d.activateSwing = false
	case Timeout:
		d.log.Warnf("timeout waiting for response to %s", d.txCommand)
	}
	return result
}

// txNext starts the next transaction: pending writes first, then the scan
// cursor, then a refresh restart.
func (d *Driver) txNext() {
	var payload [PayloadSize]byte

	if d.activateClimate {
		payload[0] = '0'
		if d.pending.PowerOn {
			payload[0] = '1'
		}
		payload[1] = byte(d.pending.Mode)
		payload[2] = setpointByte(d.pending.Setpoint)
		payload[3] = byte(d.pending.Fan)
		d.txCommand = cmdClimate
		d.serial.Send(cmdClimate, payload[:])
		return
	}

	if d.activateSwing {
		mode := byte('0')
		if d.pendingSwingV {
			mode += 1
		}
		if d.pendingSwingH {
			mode += 2
		}
		if d.pendingSwingV && d.pendingSwingH {
			mode += 4
		}
		payload[0] = mode
		payload[1] = '0'
		if d.pendingSwingV || d.pendingSwingH {
			payload[1] = '?'
		}
		payload[2] = '0'
		payload[3] = '0'
		d.txCommand = cmdSwing
		d.serial.Send(cmdSwing, payload[:])
		return
	}

	if d.cursor < len(d.queries) {
		d.txCommand = d.queries[d.cursor]
		d.serial.Send(d.txCommand, nil)
		return
	}

	if d.refresh {
		d.refresh = false
		d.refineQueries()
		d.cursor = 0
		if len(d.queries) > 0 {
			d.txCommand = d.queries[0]
			d.serial.Send(d.txCommand, nil)
		}
	}
}

// refineQueries drops the coarse combined-temperature query once both
// dedicated sensor queries have answered.
func (d *Driver) refineQueries() {
	if !(d.supportRa && d.supportRH) {
		return
	}
	if i := slices.Index(d.queries, "F9"); i >= 0 {
		d.log.Infof("dropping F9, dedicated temperature sensors available")
		d.queries = slices.Delete(d.queries, i, i+1)
	}
}

// parseAck consumes the transport's response buffer after an ACK. The reply
// code mirrors the length of the command it answers, so a one-letter query
// gets a one-letter code.
func (d *Driver) parseAck() {
	resp := d.serial.Response()
	n := len(d.txCommand)

	var rcode string
	var payload []byte
	if len(resp) == 0 {
		// Writes are acknowledged with a bare ACK and carry no body.
		rcode = d.txCommand
	} else if len(resp) < n {
		d.log.Warnf("short response: %s", HexRepr(resp))
		return
	} else {
		rcode = string(resp[:n])
		payload = resp[n:]
		if d.cursor < len(d.queries) {
			d.cursor++
			if d.cursor == len(d.queries) {
				d.scans++
			}
		}
	}

	d.decode(rcode, payload)

	if d.debugChanges {
		if prev, seen := d.lastValues[rcode]; !seen || !bytes.Equal(prev, payload) {
			d.log.Infof("%s changed: %s %s -> %s %s",
				rcode, HexRepr(prev), StrRepr(prev), HexRepr(payload), StrRepr(payload))
		}
		d.lastValues[rcode] = slices.Clone(payload)
	}
}

func (d *Driver) decode(rcode string, payload []byte) {
	switch rcode[0] {
	case 'G':
		if len(rcode) < 2 {
			return
		}
		switch rcode[1] {
		case '1':
			if len(payload) < 4 {
				return
			}
			d.active.PowerOn = payload[0] == '1'
			d.active.Mode = ClimateMode(payload[1])
			d.active.Setpoint = setpointFromByte(payload[2])
			if !d.supportRG {
				d.active.Fan = FanMode(payload[3])
			}
			d.active.Ready |= ReadyBasic
			return
		case '5':
			if len(payload) < 1 {
				return
			}
			d.active.SwingV = payload[0]&1 != 0
			d.active.SwingH = payload[0]&2 != 0
			d.active.Ready |= ReadySwing
			return
		case '8':
			// Protocol version string, nothing actionable.
			return
		case '9':
			if len(payload) < 2 {
				return
			}
			if !d.supportRH {
				d.active.TempInside = tempC10FromHalfDeg(payload[0])
			}
			if !d.supportRa {
				d.active.TempOutside = tempC10FromHalfDeg(payload[1])
			}
			return
		}
	case 'S':
		if len(rcode) < 2 {
			return
		}
		switch rcode[1] {
		case 'B':
			return
		case 'G':
			if len(payload) < 1 {
				return
			}
			d.active.Fan = FanMode(payload[0])
			d.supportRG = true
			return
		}
		// every remaining sensor reply carries at least the three digit
		// bytes; anything shorter is malformed and decodes to nothing
		if len(payload) < 3 {
			return
		}
		switch rcode[1] {
		case 'H':
			d.active.TempInside = tempC10(payload)
			d.supportRH = true
			return
		case 'I':
			d.active.TempCoil = tempC10(payload)
			return
		case 'a':
			d.active.TempOutside = tempC10(payload)
			d.supportRa = true
			return
		case 'L':
			d.active.FanRPM = int(bytesToNum(payload)) * 10
			return
		case 'd':
			d.active.CompressorHz = int(bytesToNum(payload))
			d.active.Ready |= ReadyCompressor
			return
		case 'C':
			d.active.Setpoint = bytesToNum(payload)
			return
		case 'N':
			d.active.SwingAngle = bytesToNum(payload)
			return
		case 'F':
			fallthrough
		default:
			if len(payload) > 3 {
				t := tempC10(payload)
				d.log.Debugf("unknown sensor: %s -> %s -> %.1f C (%.1f F)",
					rcode, StrRepr(payload), C10ToCelsius(t), C10ToFahrenheit(t))
			}
			return
		}
	case 'D':
		switch rcode {
		case cmdClimate:
			d.activateClimate = false
		case cmdSwing:
			d.activateSwing = false
		}
		d.refresh = true
		return
	}
}

// handleNak prunes a rejected query from the pool. A NAKed write is treated
// like an ACK: some units reject D-commands they in fact apply, and retrying
// would loop forever.
func (d *Driver) handleNak() {
	d.log.Warnf("NAK for %s", d.txCommand)
	if d.cursor < len(d.queries) && d.txCommand == d.queries[d.cursor] {
		d.log.Warnf("removing unsupported query %s", d.txCommand)
		d.queries = slices.Delete(d.queries, d.cursor, d.cursor+1)
		if d.cursor == len(d.queries) {
			d.scans++
		}
		return
	}
	d.log.Warnf("acknowledging %s command despite NAK", d.txCommand)
	d.parseAck()
}
