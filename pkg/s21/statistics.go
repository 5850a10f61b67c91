// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the s21ctl authors

package s21

import (
	"fmt"
	"time"
)

// Statistics tracks protocol health counters for a driver session.
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	Transactions   uint64
	Acks           uint64
	Naks           uint64
	Timeouts       uint64
	ProtocolErrors uint64

	TransactionRate float64 // transactions per second
	ErrorRate       float64 // timeouts + protocol errors per second
}

// NewStatistics creates a statistics tracker starting now.
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update records the outcome of one completed transaction. Busy and Idle
// results are not transactions and are ignored.
func (s *Statistics) Update(result Result) {
	switch result {
	case Ack:
		s.Acks++
	case Nak:
		s.Naks++
	case Timeout:
		s.Timeouts++
	case Error:
		s.ProtocolErrors++
	default:
		return
	}
	s.Transactions++
	s.LastUpdateTime = time.Now()
}

// CalculateRates recomputes the per-second rates from the counters.
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed <= 0 {
		return
	}
	s.TransactionRate = float64(s.Transactions) / elapsed
	s.ErrorRate = float64(s.Timeouts+s.ProtocolErrors) / elapsed
}

// Reset zeroes all counters and restarts the measurement window.
func (s *Statistics) Reset() {
	*s = Statistics{}
	s.StartTime = time.Now()
	s.LastUpdateTime = s.StartTime
}

func (s *Statistics) String() string {
	pct := func(n uint64) float64 {
		if s.Transactions == 0 {
			return 0
		}
		return float64(n) / float64(s.Transactions) * 100
	}
	return fmt.Sprintf(
		"transactions=%d (%.1f/s) acks=%d (%.1f%%) naks=%d (%.1f%%) timeouts=%d (%.1f%%) errors=%d (%.1f%%)",
		s.Transactions, s.TransactionRate,
		s.Acks, pct(s.Acks),
		s.Naks, pct(s.Naks),
		s.Timeouts, pct(s.Timeouts),
		s.ProtocolErrors, pct(s.ProtocolErrors),
	)
}
