// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the s21ctl authors

package s21

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Direction tags a captured chunk as transmitted or received.
type Direction uint8

const (
	DirTx Direction = iota
	DirRx
)

func (d Direction) String() string {
	switch d {
	case DirTx:
		return "TX"
	case DirRx:
		return "RX"
	default:
		return "??"
	}
}

// Record is one captured chunk of line traffic. Records are written as a
// CBOR sequence with integer keys to keep capture files compact.
type Record struct {
	OffsetMs int64     `cbor:"1,keyasint"`
	Dir      Direction `cbor:"2,keyasint"`
	Data     []byte    `cbor:"3,keyasint"`
}

// CaptureWriter streams traffic records to a capture file.
type CaptureWriter struct {
	enc   *cbor.Encoder
	start time.Time
}

// NewCaptureWriter creates a capture writer. Offsets are measured from now.
func NewCaptureWriter(w io.Writer) *CaptureWriter {
	return &CaptureWriter{
		enc:   cbor.NewEncoder(w),
		start: time.Now(),
	}
}

// Record appends one traffic chunk. The data slice is copied.
func (c *CaptureWriter) Record(dir Direction, data []byte) error {
	rec := Record{
		OffsetMs: time.Since(c.start).Milliseconds(),
		Dir:      dir,
		Data:     append([]byte(nil), data...),
	}
	if err := c.enc.Encode(rec); err != nil {
		return fmt.Errorf("capture: encode record: %w", err)
	}
	return nil
}

// ReadCapture decodes all records from a capture file.
func ReadCapture(r io.Reader) ([]Record, error) {
	dec := cbor.NewDecoder(r)
	var records []Record
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return records, fmt.Errorf("capture: decode record: %w", err)
		}
		records = append(records, rec)
	}
}

// TapPort wraps a Port and records all traffic passing through it.
type TapPort struct {
	Port
	cap *CaptureWriter
	log Logger
}

// NewTapPort wraps port so that all reads and writes are recorded to cap.
// Capture errors are logged and otherwise ignored.
func NewTapPort(port Port, cap *CaptureWriter, log Logger) *TapPort {
	if log == nil {
		log = NopLogger{}
	}
	return &TapPort{Port: port, cap: cap, log: log}
}

func (t *TapPort) Write(p []byte) (int, error) {
	n, err := t.Port.Write(p)
	if n > 0 {
		if cerr := t.cap.Record(DirTx, p[:n]); cerr != nil {
			t.log.Warnf("%v", cerr)
		}
	}
	return n, err
}

func (t *TapPort) ReadByte() (byte, error) {
	b, err := t.Port.ReadByte()
	if err == nil {
		if cerr := t.cap.Record(DirRx, []byte{b}); cerr != nil {
			t.log.Warnf("%v", cerr)
		}
	}
	return b, err
}
