// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 the s21ctl authors

package cmd

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aircomm/s21ctl/pkg/s21"
)

// newLogger builds the CLI logger. Debug output is gated by --verbose; the
// sugared logger satisfies the engine's Logger interface directly.
func newLogger() (s21.Logger, func(), error) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	log, err := cfg.Build()
	if err != nil {
		return nil, nil, err
	}

	sugar := log.Sugar()
	cleanup := func() {
		_ = log.Sync()
	}
	return sugar, cleanup, nil
}
