// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the s21ctl authors

package s21

import "time"

// Result is the discrete outcome a transport or driver tick produces.
type Result int

// Tick and Send outcomes.
const (
	// Busy: a transaction or cooldown is still in progress, try again later.
	Busy Result = iota
	// Idle: nothing in flight, a new frame may be sent.
	Idle
	// Ack: the unit acknowledged our frame (and, for queries, a valid
	// reply frame was received).
	Ack
	// Nak: the unit rejected the frame.
	Nak
	// Error: a protocol violation (unexpected byte, checksum mismatch,
	// buffer overflow) aborted the transaction.
	Error
	// Timeout: no reply byte arrived within ResponseTimeout.
	Timeout
)

func (r Result) String() string {
	switch r {
	case Busy:
		return "Busy"
	case Idle:
		return "Idle"
	case Ack:
		return "Ack"
	case Nak:
		return "Nak"
	case Error:
		return "Error"
	case Timeout:
		return "Timeout"
	default:
		return "UNKNOWN"
	}
}

// Port is the byte channel the transport drives. Implementations must not
// block: ReadByte is only called while Available reports pending input.
type Port interface {
	// Write transmits the given bytes.
	Write(p []byte) (int, error)
	// Available returns the number of bytes waiting to be read.
	Available() int
	// ReadByte returns the next pending input byte.
	ReadByte() (byte, error)
}

// Transport session states.
type commState int

const (
	commIdle       commState = iota
	commCommandAck           // wrote a command, awaiting bare ACK/NAK
	commQueryAck             // wrote a query, awaiting ACK before the reply frame
	commQueryStx             // awaiting the reply frame start
	commQueryEtx             // accumulating the reply frame body
	commCooldown             // post-transaction quiet period
)

// Transport owns one transaction at a time on the half-duplex S21 link:
// it encodes and transmits a frame, then consumes the unit's reply byte by
// byte across ticks, surfacing a single discrete Result. It is not safe for
// concurrent use; Send and Tick must be called from one driver loop.
type Transport struct {
	port Port
	log  Logger

	state     commState
	response  []byte
	cooldown  time.Duration
	lastEvent time.Time

	// now is the monotonic clock, replaceable in tests.
	now func() time.Time
}

// NewTransport creates a transport over the given port. A nil logger
// disables logging.
func NewTransport(port Port, log Logger) *Transport {
	if log == nil {
		log = NopLogger{}
	}
	return &Transport{
		port:     port,
		log:      log,
		state:    commIdle,
		response: make([]byte, 0, maxResponseSize+1),
		now:      time.Now,
	}
}

// Response returns the body of the last received reply frame (command echo
// plus payload, checksum stripped). It is valid after a Tick that returned
// Ack and until the next Send.
func (t *Transport) Response() []byte {
	return t.response
}

// Send encodes and transmits a frame. A nil payload marks a query (the
// reply is a data-bearing frame); a non-nil payload marks a write command
// (the reply is a bare ACK or NAK) and must be exactly PayloadSize bytes.
//
// Returns Busy when a transaction is still outstanding, Error for an
// invalid command or payload length, and Ack when the frame was accepted
// for processing. Ack here does not mean the unit acknowledged anything
// yet; that arrives through Tick.
func (t *Transport) Send(command string, payload []byte) Result {
	if t.state != commIdle {
		return Busy
	}
	if len(command) == 0 || len(command) > MaxCommandSize {
		t.log.Warnf("tx: command %q too large", command)
		return Error
	}
	if payload != nil && len(payload) != PayloadSize {
		t.log.Warnf("tx: %s payload must be %d bytes, got %d", command, PayloadSize, len(payload))
		return Error
	}

	t.log.Debugf("tx: %s %s", command, StrRepr(payload))

	// prepare for the response
	t.response = t.response[:0]
	t.flushInput()

	frame := EncodeFrame(command, payload)
	if _, err := t.port.Write(frame); err != nil {
		t.log.Errorf("tx: write failed: %v", err)
		return Error
	}

	t.lastEvent = t.now()
	if payload != nil {
		t.state = commCommandAck
	} else {
		t.state = commQueryAck
	}
	return Ack
}

// Tick advances the session. It must be called at least as often as bytes
// can arrive on the port.
func (t *Transport) Tick() Result {
	switch t.state {
	case commIdle:
		return Idle

	case commCooldown:
		if t.now().Sub(t.lastEvent) > t.cooldown {
			t.state = commIdle
			return Idle
		}
		return Busy

	default:
		// all other states are actively receiving from the unit
		if t.now().Sub(t.lastEvent) > ResponseTimeout {
			t.state = commIdle
			return Timeout
		}
		result := Busy
		for result == Busy && t.port.Available() > 0 {
			b, err := t.port.ReadByte()
			if err != nil {
				t.log.Errorf("rx: read failed: %v", err)
				break
			}
			t.lastEvent = t.now()
			result = t.handleByte(b)
		}
		return result
	}
}

// enterCooldown moves the session to the quiet period that follows every
// completed or aborted transaction.
func (t *Transport) enterCooldown(length time.Duration) {
	t.state = commCooldown
	t.cooldown = length
}

// handleByte runs one input byte through the session state machine.
func (t *Transport) handleByte(b byte) Result {
	switch t.state {
	case commCommandAck, commQueryAck:
		switch b {
		case ACK:
			if t.state == commQueryAck {
				t.state = commQueryStx
				return Busy
			}
			// a command's reply is just the ack, no data frame follows
			t.enterCooldown(ResponseTurnaround)
			return Ack
		case NAK:
			t.enterCooldown(ResponseTurnaround)
			return Nak
		default:
			t.log.Warnf("rx ack: unexpected 0x%02X", b)
			t.enterCooldown(ErrorCooldown)
			return Error
		}

	case commQueryStx:
		switch b {
		case STX:
			t.state = commQueryEtx
			return Busy
		case ACK:
			// on rare occasions some units repeat the ACK
			t.log.Debugf("rx stx: unexpected extra ACK, ignoring")
			return Busy
		default:
			t.log.Warnf("rx stx: unexpected 0x%02X", b)
			t.enterCooldown(ErrorCooldown)
			return Error
		}

	case commQueryEtx:
		if b != ETX {
			t.response = append(t.response, b)
			if len(t.response) > maxResponseSize {
				t.log.Warnf("rx etx: overflow %s %s + 0x%02X",
					StrRepr(t.response), HexRepr(t.response), b)
				t.enterCooldown(ErrorCooldown)
				return Error
			}
			return Busy
		}
		// frame complete, validate checksum
		if len(t.response) == 0 {
			t.log.Warnf("rx etx: empty frame")
			t.enterCooldown(ErrorCooldown)
			return Error
		}
		received := t.response[len(t.response)-1]
		t.response = t.response[:len(t.response)-1]
		sum := Checksum(t.response)
		if !checksumMatches(sum, received) {
			t.log.Warnf("rx etx: checksum mismatch: 0x%02X != 0x%02X (calc from %s)",
				received, sum, HexRepr(t.response))
			t.enterCooldown(ErrorCooldown)
			return Error
		}
		if _, err := t.port.Write([]byte{ACK}); err != nil {
			t.log.Errorf("rx etx: ack write failed: %v", err)
		}
		t.enterCooldown(ResponseTurnaround)
		return Ack

	default:
		return Busy
	}
}

// flushInput discards stray bytes waiting on the port before a new send.
func (t *Transport) flushInput() {
	for t.port.Available() > 0 {
		if _, err := t.port.ReadByte(); err != nil {
			return
		}
	}
}
