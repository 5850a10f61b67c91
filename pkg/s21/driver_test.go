// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the s21ctl authors

package s21

import (
	"slices"
	"testing"
	"time"
)

// ============================================================
// Test harness
// ============================================================

type harness struct {
	t     *testing.T
	drv   *Driver
	port  *fakePort
	clock *fakeClock
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	port := &fakePort{}
	clock := &fakeClock{t: time.Unix(1000, 0)}
	tr := NewTransport(port, nil)
	tr.now = clock.Now
	return &harness{
		t:     t,
		drv:   NewDriver(tr, nil, opts...),
		port:  port,
		clock: clock,
	}
}

// sendNext lets the driver start its next transaction and returns the
// command and payload it transmitted. An empty command means the driver
// went quiet.
func (h *harness) sendNext() (string, []byte) {
	h.t.Helper()
	h.clock.advance(ResponseTurnaround + time.Millisecond)
	h.port.tx = nil
	if got := h.drv.Tick(); got != Idle {
		h.t.Fatalf("Tick = %v, want Idle", got)
	}
	return h.lastFrame()
}

// lastFrame decodes the frame most recently written to the port.
func (h *harness) lastFrame() (string, []byte) {
	h.t.Helper()
	tx := h.port.tx
	if len(tx) == 0 {
		return "", nil
	}
	if tx[0] != STX || tx[len(tx)-1] != ETX {
		h.t.Fatalf("malformed frame on wire: %v", tx)
	}
	body := tx[1 : len(tx)-2] // strip STX, checksum, ETX
	if len(body) > MaxCommandSize {
		return string(body[:MaxCommandSize]), body[MaxCommandSize:]
	}
	return string(body), nil
}

// ackQuery answers the in-flight query with a full reply frame.
func (h *harness) ackQuery(rcode string, payload []byte) {
	h.t.Helper()
	h.port.tx = nil
	h.port.queue(queryReply(rcode, payload)...)
	if got := h.drv.Tick(); got != Ack {
		h.t.Fatalf("Tick = %v, want Ack", got)
	}
}

// ackCommand answers the in-flight write with a bare ACK.
func (h *harness) ackCommand() {
	h.t.Helper()
	h.port.queue(ACK)
	if got := h.drv.Tick(); got != Ack {
		h.t.Fatalf("Tick = %v, want Ack", got)
	}
}

// nak rejects the in-flight transaction.
func (h *harness) nak() {
	h.t.Helper()
	h.port.queue(NAK)
	if got := h.drv.Tick(); got != Nak {
		h.t.Fatalf("Tick = %v, want Nak", got)
	}
}

// ============================================================
// Scan loop
// ============================================================

func TestDriver_ScanWalksPoolInOrder(t *testing.T) {
	h := newHarness(t)

	for _, want := range DefaultQueries {
		cmd, payload := h.sendNext()
		if cmd != want || payload != nil {
			t.Fatalf("sent %q %v, want query %q", cmd, payload, want)
		}
		// neutral reply code so no capability flags get set
		h.ackQuery("X"+want[1:], []byte{'0', '0', '0', '0'})
	}

	// the scan is exhausted and nothing requested a refresh
	if cmd, _ := h.sendNext(); cmd != "" {
		t.Fatalf("driver sent %q after scan end, want nothing", cmd)
	}

	h.drv.RequestRefresh()
	if cmd, _ := h.sendNext(); cmd != DefaultQueries[0] {
		t.Errorf("refresh restarted at %q, want %q", cmd, DefaultQueries[0])
	}
}

func TestDriver_TimeoutResendsSameQuery(t *testing.T) {
	h := newHarness(t)

	cmd, _ := h.sendNext()
	h.clock.advance(ResponseTimeout + time.Millisecond)
	if got := h.drv.Tick(); got != Timeout {
		t.Fatalf("Tick = %v, want Timeout", got)
	}

	again, _ := h.sendNext()
	if again != cmd {
		t.Errorf("after timeout driver sent %q, want %q again", again, cmd)
	}
}

func TestDriver_ScansCountsCompletedScans(t *testing.T) {
	h := newHarness(t, WithQueries("F1", "Rd"))

	if got := h.drv.Scans(); got != 0 {
		t.Fatalf("Scans = %d before any scan", got)
	}

	h.sendNext()
	h.ackQuery("G1", []byte{'1', byte(ModeHeat), 73, byte(FanAuto)})
	if got := h.drv.Scans(); got != 0 {
		t.Errorf("Scans = %d mid-scan, want 0", got)
	}
	if !h.drv.ScanInProgress() {
		t.Error("ScanInProgress = false mid-scan")
	}

	h.sendNext()
	h.ackQuery("Sd", []byte{'2', '4', '0', '+'})
	if got := h.drv.Scans(); got != 1 {
		t.Errorf("Scans = %d after the first scan, want 1", got)
	}
	if h.drv.ScanInProgress() {
		t.Error("ScanInProgress = true after the scan ended")
	}

	// a scan ended by pruning its last query also counts
	h.drv.RequestRefresh()
	h.sendNext()
	h.ackQuery("G1", []byte{'1', byte(ModeHeat), 73, byte(FanAuto)})
	h.sendNext()
	h.nak()
	if got := h.drv.Scans(); got != 2 {
		t.Errorf("Scans = %d after the pruned scan, want 2", got)
	}
}

// ============================================================
// Decoding
// ============================================================

func TestDriver_DecodeBasicState(t *testing.T) {
	h := newHarness(t, WithQueries("F1"))

	h.sendNext()
	h.ackQuery("G1", []byte{'1', byte(ModeHeat), 78, byte(FanSpeed2)})

	s := h.drv.State()
	if !s.PowerOn {
		t.Error("PowerOn = false, want true")
	}
	if s.Mode != ModeHeat {
		t.Errorf("Mode = %v, want ModeHeat", s.Mode)
	}
	if s.Setpoint != 250 {
		t.Errorf("Setpoint = %d, want 250", s.Setpoint)
	}
	if s.Fan != FanSpeed2 {
		t.Errorf("Fan = %v, want FanSpeed2", s.Fan)
	}
	if !s.Ready.Has(ReadyBasic) {
		t.Error("ReadyBasic not set")
	}
}

func TestDriver_DecodeSensors(t *testing.T) {
	tests := []struct {
		name    string
		rcode   string
		payload []byte
		check   func(t *testing.T, s DeviceState)
	}{
		{
			"inside temperature", "SH", []byte{'0', '5', '0', '0'},
			func(t *testing.T, s DeviceState) {
				if s.TempInside != 50 {
					t.Errorf("TempInside = %d, want 50", s.TempInside)
				}
			},
		},
		{
			"negative outside temperature", "Sa", []byte{'5', '0', '0', '-'},
			func(t *testing.T, s DeviceState) {
				if s.TempOutside != -5 {
					t.Errorf("TempOutside = %d, want -5", s.TempOutside)
				}
			},
		},
		{
			"coil temperature", "SI", []byte{'5', '2', '3', '+'},
			func(t *testing.T, s DeviceState) {
				if s.TempCoil != 325 {
					t.Errorf("TempCoil = %d, want 325", s.TempCoil)
				}
			},
		},
		{
			"fan rpm scaled by ten", "SL", []byte{'5', '2', '0', '+'},
			func(t *testing.T, s DeviceState) {
				if s.FanRPM != 250 {
					t.Errorf("FanRPM = %d, want 250", s.FanRPM)
				}
			},
		},
		{
			"compressor frequency", "Sd", []byte{'2', '4', '0', '+'},
			func(t *testing.T, s DeviceState) {
				if s.CompressorHz != 42 {
					t.Errorf("CompressorHz = %d, want 42", s.CompressorHz)
				}
				if !s.Ready.Has(ReadyCompressor) {
					t.Error("ReadyCompressor not set")
				}
			},
		},
		{
			"swing flags", "G5", []byte{'3', '0', '0', '0'},
			func(t *testing.T, s DeviceState) {
				if !s.SwingV || !s.SwingH {
					t.Errorf("SwingV=%t SwingH=%t, want both true", s.SwingV, s.SwingH)
				}
				if !s.Ready.Has(ReadySwing) {
					t.Error("ReadySwing not set")
				}
			},
		},
		{
			"swing angle", "SN", []byte{'0', '2', '0', '+'},
			func(t *testing.T, s DeviceState) {
				if s.SwingAngle != 20 {
					t.Errorf("SwingAngle = %d, want 20", s.SwingAngle)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.sendNext()
			h.ackQuery(tt.rcode, tt.payload)
			tt.check(t, h.drv.State())
		})
	}
}

func TestDriver_FanSourcePrecedence(t *testing.T) {
	h := newHarness(t, WithQueries("RG", "F1"))

	h.sendNext()
	h.ackQuery("SG", []byte{byte(FanSilent), '0', '0', '0'})
	h.sendNext()
	h.ackQuery("G1", []byte{'1', byte(ModeCool), 72, byte(FanAuto)})

	s := h.drv.State()
	if s.Fan != FanSilent {
		t.Errorf("Fan = %v, want FanSilent (dedicated query wins)", s.Fan)
	}
	if s.Setpoint != 220 {
		t.Errorf("Setpoint = %d, want 220", s.Setpoint)
	}
}

func TestDriver_TemperatureSourcePrecedence(t *testing.T) {
	h := newHarness(t, WithQueries("RH", "Ra", "F9"))

	h.sendNext()
	h.ackQuery("SH", []byte{'0', '5', '0', '0'})
	h.sendNext()
	h.ackQuery("Sa", []byte{'0', '0', '1', '-'})
	h.sendNext()
	// half-degree values that would overwrite the finer readings
	h.ackQuery("G9", []byte{178, 148, '0', '0'})

	s := h.drv.State()
	if s.TempInside != 50 {
		t.Errorf("TempInside = %d, want 50 from the dedicated sensor", s.TempInside)
	}
	if s.TempOutside != -100 {
		t.Errorf("TempOutside = %d, want -100 from the dedicated sensor", s.TempOutside)
	}
}

func TestDriver_ShortSensorReplyIgnored(t *testing.T) {
	tests := []struct {
		name    string
		rcode   string
		payload []byte
	}{
		{"empty payload", "SH", nil},
		{"one byte", "Sa", []byte{'5'}},
		{"two bytes", "Sd", []byte{'2', '4'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.drv.active.TempInside = 215

			h.sendNext()
			h.ackQuery(tt.rcode, tt.payload)

			s := h.drv.State()
			if s.TempInside != 215 {
				t.Errorf("TempInside = %d, want 215 untouched", s.TempInside)
			}
			if s.TempOutside != 0 || s.CompressorHz != 0 {
				t.Errorf("short reply wrote state: %+v", s)
			}
			if s.Ready.Has(ReadyCompressor) {
				t.Error("ReadyCompressor set from a short reply")
			}
			if h.drv.supportRH || h.drv.supportRa {
				t.Error("capability learned from a short reply")
			}
		})
	}
}

func TestDriver_ShortReplyKeepsCoarseFallback(t *testing.T) {
	h := newHarness(t, WithQueries("RH", "F9"))

	h.sendNext()
	h.ackQuery("SH", nil)
	h.sendNext()
	h.ackQuery("G9", []byte{178, 148, '0', '0'})

	// the truncated SH reply must not claim the dedicated sensor, so the
	// combined query still supplies the temperatures
	s := h.drv.State()
	if s.TempInside != 250 {
		t.Errorf("TempInside = %d, want 250 from the combined query", s.TempInside)
	}
	if s.TempOutside != 100 {
		t.Errorf("TempOutside = %d, want 100 from the combined query", s.TempOutside)
	}
}

func TestDriver_SingleLetterQueryReplySplit(t *testing.T) {
	h := newHarness(t, WithQueries("M"))

	if cmd, _ := h.sendNext(); cmd != "M" {
		t.Fatalf("sent %q, want M", cmd)
	}
	// the reply code is as long as the command, so the second byte here
	// belongs to the payload and must not be read as a sensor code
	h.ackQuery("S", []byte{'H', '5', '0', '0'})

	if s := h.drv.State(); s != (DeviceState{}) {
		t.Errorf("reply to a one-letter query changed state: %+v", s)
	}
	if h.drv.supportRH {
		t.Error("capability learned from a misread reply code")
	}
	if cmd, _ := h.sendNext(); cmd != "" {
		t.Errorf("driver sent %q, want scan to be over", cmd)
	}
}

func TestDriver_UnknownReplyNotDecoded(t *testing.T) {
	h := newHarness(t, WithQueries("RX"))

	h.sendNext()
	h.ackQuery("SX", []byte{'1', '2', '3', '+'})

	if s := h.drv.State(); s != (DeviceState{}) {
		t.Errorf("unknown reply changed state: %+v", s)
	}
}

// ============================================================
// Query-pool refinement
// ============================================================

func TestDriver_RefinementDropsCoarseTempQuery(t *testing.T) {
	h := newHarness(t)

	var scanned []string
	for {
		cmd, _ := h.sendNext()
		if cmd == "" {
			break
		}
		scanned = append(scanned, cmd)
		switch cmd {
		case "RH":
			h.ackQuery("SH", []byte{'0', '5', '0', '0'})
		case "Ra":
			h.ackQuery("Sa", []byte{'0', '8', '0', '+'})
		default:
			h.ackQuery("X"+cmd[1:], []byte{'0', '0', '0', '0'})
		}
	}
	if !slices.Contains(scanned, "F9") {
		t.Fatal("first scan should still include F9")
	}

	h.drv.RequestRefresh()
	scanned = scanned[:0]
	for {
		cmd, _ := h.sendNext()
		if cmd == "" {
			break
		}
		scanned = append(scanned, cmd)
		h.ackQuery("X"+cmd[1:], []byte{'0', '0', '0', '0'})
	}
	if slices.Contains(scanned, "F9") {
		t.Error("second scan still includes F9 after both sensors answered")
	}
}

func TestDriver_RefinementNeedsBothSources(t *testing.T) {
	h := newHarness(t, WithQueries("RH", "F9"))

	h.sendNext()
	h.ackQuery("SH", []byte{'0', '5', '0', '0'})
	h.sendNext()
	h.ackQuery("G9", []byte{178, 148, '0', '0'})

	h.drv.RequestRefresh()
	var scanned []string
	for {
		cmd, _ := h.sendNext()
		if cmd == "" {
			break
		}
		scanned = append(scanned, cmd)
		h.ackQuery("X"+cmd[1:], []byte{'0', '0', '0', '0'})
	}
	if !slices.Contains(scanned, "F9") {
		t.Error("F9 dropped although only the inside sensor answered")
	}
}

// ============================================================
// NAK handling
// ============================================================

func TestDriver_NakPrunesQueryAndRepairsCursor(t *testing.T) {
	h := newHarness(t, WithQueries("F1", "F9", "Rd"))

	h.sendNext()
	h.ackQuery("G1", []byte{'1', byte(ModeCool), 72, byte(FanAuto)})

	if cmd, _ := h.sendNext(); cmd != "F9" {
		t.Fatalf("sent %q, want F9", cmd)
	}
	h.nak()

	// F9 is gone and the cursor now points at Rd without skipping it
	if cmd, _ := h.sendNext(); cmd != "Rd" {
		t.Errorf("after NAK driver sent %q, want Rd", cmd)
	}
	h.ackQuery("Sd", []byte{'0', '0', '0', '+'})

	h.drv.RequestRefresh()
	var scanned []string
	for {
		cmd, _ := h.sendNext()
		if cmd == "" {
			break
		}
		scanned = append(scanned, cmd)
		h.ackQuery("X"+cmd[1:], []byte{'0', '0', '0', '0'})
	}
	if slices.Contains(scanned, "F9") {
		t.Error("pruned query F9 came back on refresh")
	}
}

func TestDriver_NakOnLastQueryEndsScan(t *testing.T) {
	h := newHarness(t, WithQueries("F1"))

	h.sendNext()
	h.nak()

	if cmd, _ := h.sendNext(); cmd != "" {
		t.Errorf("driver sent %q after the only query was pruned", cmd)
	}
}

// ============================================================
// Writes
// ============================================================

func TestDriver_ClimateWriteTakesPriority(t *testing.T) {
	h := newHarness(t)

	h.sendNext()
	h.ackQuery("G1", []byte{'0', byte(ModeDisabled), 64, byte(FanAuto)})

	h.drv.SetClimate(Settings{
		PowerOn:  true,
		Mode:     ModeHeat,
		Setpoint: 22.5,
		Fan:      FanAuto,
	})
	if !h.drv.PendingWrite() {
		t.Fatal("PendingWrite = false after SetClimate")
	}

	cmd, payload := h.sendNext()
	if cmd != "D1" {
		t.Fatalf("sent %q, want the climate write D1", cmd)
	}
	want := []byte{'1', byte(ModeHeat), 73, byte(FanAuto)}
	if string(payload) != string(want) {
		t.Errorf("payload = %v, want %v", payload, want)
	}
	h.ackCommand()
	if h.drv.PendingWrite() {
		t.Error("PendingWrite still true after the write was ACKed")
	}

	// the interrupted scan resumes where it left off
	if cmd, _ := h.sendNext(); cmd != DefaultQueries[1] {
		t.Errorf("scan resumed at %q, want %q", cmd, DefaultQueries[1])
	}
}

func TestDriver_SetpointRoundsToHalfDegree(t *testing.T) {
	tests := []struct {
		degC float64
		want byte
	}{
		{22.5, 73},
		{22.3, 73},
		{22.2, 72},
		{18.0, 64},
	}
	for _, tt := range tests {
		h := newHarness(t)
		h.sendNext()
		h.ackQuery("G1", []byte{'1', byte(ModeHeat), 64, byte(FanAuto)})

		h.drv.SetClimate(Settings{PowerOn: true, Mode: ModeHeat, Setpoint: tt.degC, Fan: FanAuto})
		_, payload := h.sendNext()
		if payload[2] != tt.want {
			t.Errorf("setpoint %.1f encoded as %d, want %d", tt.degC, payload[2], tt.want)
		}
		h.ackCommand()
	}
}

func TestDriver_SwingWriteEncoding(t *testing.T) {
	tests := []struct {
		name     string
		vertical bool
		horiz    bool
		want     []byte
	}{
		{"off", false, false, []byte{'0', '0', '0', '0'}},
		{"vertical", true, false, []byte{'1', '?', '0', '0'}},
		{"horizontal", false, true, []byte{'2', '?', '0', '0'}},
		{"both", true, true, []byte{'7', '?', '0', '0'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.sendNext()
			h.ackQuery("G1", []byte{'1', byte(ModeCool), 72, byte(FanAuto)})

			h.drv.SetSwing(tt.vertical, tt.horiz)
			cmd, payload := h.sendNext()
			if cmd != "D5" {
				t.Fatalf("sent %q, want the swing write D5", cmd)
			}
			if string(payload) != string(tt.want) {
				t.Errorf("payload = %v, want %v", payload, tt.want)
			}
			h.ackCommand()
		})
	}
}

func TestDriver_WriteNakTreatedAsAck(t *testing.T) {
	h := newHarness(t)

	h.sendNext()
	h.ackQuery("G1", []byte{'1', byte(ModeCool), 72, byte(FanAuto)})

	h.drv.SetClimate(Settings{PowerOn: true, Mode: ModeCool, Setpoint: 21, Fan: FanAuto})
	if cmd, _ := h.sendNext(); cmd != "D1" {
		t.Fatalf("sent %q, want D1", cmd)
	}
	h.nak()

	if h.drv.PendingWrite() {
		t.Error("PendingWrite still true after NAKed write")
	}
	if cmd, _ := h.sendNext(); cmd == "D1" {
		t.Error("driver retried the NAKed write")
	}
}

// ============================================================
// Error recovery and predicates
// ============================================================

func TestDriver_ErrorAbortsScanAndPendingWrites(t *testing.T) {
	h := newHarness(t)

	h.sendNext()
	h.drv.SetClimate(Settings{PowerOn: true, Mode: ModeHeat, Setpoint: 22, Fan: FanAuto})
	h.port.queue(0x42)
	if got := h.drv.Tick(); got != Error {
		t.Fatalf("Tick = %v, want Error", got)
	}
	if h.drv.PendingWrite() {
		t.Error("pending write survived a protocol error")
	}

	h.clock.advance(ErrorCooldown + time.Millisecond)
	// error forces a refresh, so the next transaction restarts the scan
	if cmd, _ := h.sendNext(); cmd != DefaultQueries[0] {
		t.Errorf("after error driver sent %q, want %q", cmd, DefaultQueries[0])
	}
}

func TestDriver_ReadyAndIdlePredicates(t *testing.T) {
	h := newHarness(t, WithQueries("F1", "Rd", "RH"))

	if h.drv.IsReady() {
		t.Error("IsReady = true before any replies")
	}

	h.sendNext()
	h.ackQuery("G1", []byte{'1', byte(ModeHeat), 73, byte(FanAuto)})
	if h.drv.IsReady() {
		t.Error("IsReady = true without compressor data")
	}

	h.sendNext()
	h.ackQuery("Sd", []byte{'2', '4', '0', '+'})
	if !h.drv.IsReady() {
		t.Error("IsReady = false with basic and compressor data")
	}

	h.sendNext()
	h.ackQuery("SH", []byte{'0', '0', '2', '0'})
	// heating towards 22.5 from 20.0 degrees
	if h.drv.IsIdle() {
		t.Error("IsIdle = true while actively heating")
	}

	h.drv.active.Setpoint = 190
	if !h.drv.IsIdle() {
		t.Error("IsIdle = false with setpoint below room temperature")
	}
}
