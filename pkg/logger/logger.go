/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logger provides JSON structured logging using zerolog
package logger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var errInvalidDuration = errors.New("invalid duration")

// Config controls log level, destination and the optional OTLP log export.
type Config struct {
	Level      string     `json:"level"`
	Debug      bool       `json:"debug"`
	Output     string     `json:"output"`
	TimeFormat string     `json:"time_format"`
	OTel       OTelConfig `json:"otel"`
}

// Duration is a time.Duration that reads Go duration strings from JSON.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// ParseLevel resolves the effective level of config. Debug wins over Level.
func ParseLevel(config *Config) (zerolog.Level, error) {
	if config.Debug {
		return zerolog.DebugLevel, nil
	}

	if config.Level == "" {
		return zerolog.InfoLevel, nil
	}

	return zerolog.ParseLevel(config.Level)
}

// Writer returns the destination named by config.Output.
func Writer(config *Config) io.Writer {
	if config.Output == "stderr" {
		return os.Stderr
	}

	return os.Stdout
}

// NewOutput builds the destination of a component logger. When OTLP export
// is enabled every line is also sent to the collector.
func NewOutput(ctx context.Context, config *Config) (io.Writer, error) {
	output := Writer(config)

	if !config.OTel.Enabled || config.OTel.Endpoint == "" {
		return output, nil
	}

	otelWriter, err := NewOTELWriter(ctx, config.OTel)
	if err != nil {
		return nil, err
	}

	return zerolog.MultiLevelWriter(output, otelWriter), nil
}

// Shutdown flushes the OTLP log and metric pipelines.
func Shutdown() error {
	return ShutdownOTEL()
}
