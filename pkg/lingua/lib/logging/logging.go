// Copyright 2026 The Lingua Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging constructs zap loggers from the configuration surface
// exposed on the CLI (--log-level, --log-style).
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is a logging verbosity level: debug, info, warn or error.
type Level string

// Style selects the log output encoding.
type Style string

const (
	StyleTerminal Style = "terminal" // human-readable console output
	StyleJSON     Style = "json"     // structured JSON, one object per line
	StyleNoop     Style = "noop"     // discard everything
)

// Config holds logger construction options.
type Config struct {
	Level Level
	Style Style
}

// NewLogger builds a zap logger for the given config. Unknown levels fall
// back to info and unknown styles to terminal, so a typo in a config file
// never silences the process.
func NewLogger(cfg *Config) *zap.Logger {
	if cfg == nil {
		cfg = &Config{}
	}

	if cfg.Style == StyleNoop {
		return zap.NewNop()
	}

	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(string(cfg.Level)); err == nil {
		level = parsed
	}

	var encoder zapcore.Encoder
	switch cfg.Style {
	case StyleJSON:
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	default:
		encoderCfg := zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return zap.New(core)
}
