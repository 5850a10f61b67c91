// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the s21ctl authors

package s21

import (
	"bytes"
	"testing"
)

func TestCaptureRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewCaptureWriter(&buf)

	if err := w.Record(DirTx, []byte{STX, 'F', '1', 0x77, ETX}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := w.Record(DirRx, []byte{ACK}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	records, err := ReadCapture(&buf)
	if err != nil {
		t.Fatalf("ReadCapture: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Dir != DirTx || !bytes.Equal(records[0].Data, []byte{STX, 'F', '1', 0x77, ETX}) {
		t.Errorf("record 0 = %+v", records[0])
	}
	if records[1].Dir != DirRx || !bytes.Equal(records[1].Data, []byte{ACK}) {
		t.Errorf("record 1 = %+v", records[1])
	}
	if records[1].OffsetMs < records[0].OffsetMs {
		t.Errorf("offsets not monotonic: %d then %d", records[0].OffsetMs, records[1].OffsetMs)
	}
}

func TestReadCapture_Empty(t *testing.T) {
	records, err := ReadCapture(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("ReadCapture: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records from empty input", len(records))
	}
}

func TestTapPort_RecordsTraffic(t *testing.T) {
	var buf bytes.Buffer
	port := &fakePort{}
	tap := NewTapPort(port, NewCaptureWriter(&buf), nil)

	frame := EncodeFrame("F1", nil)
	if _, err := tap.Write(frame); err != nil {
		t.Fatalf("Write: %v", err)
	}
	port.queue(ACK, NAK)
	for tap.Available() > 0 {
		if _, err := tap.ReadByte(); err != nil {
			t.Fatalf("ReadByte: %v", err)
		}
	}

	records, err := ReadCapture(&buf)
	if err != nil {
		t.Fatalf("ReadCapture: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0].Dir != DirTx || !bytes.Equal(records[0].Data, frame) {
		t.Errorf("TX record = %+v", records[0])
	}
	if records[1].Dir != DirRx || !bytes.Equal(records[1].Data, []byte{ACK}) {
		t.Errorf("first RX record = %+v", records[1])
	}
	if records[2].Dir != DirRx || !bytes.Equal(records[2].Data, []byte{NAK}) {
		t.Errorf("second RX record = %+v", records[2])
	}
}
