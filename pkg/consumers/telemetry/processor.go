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

// Package telemetry feeds submissions published on NATS JetStream through
// the ingestion gateway.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carverauto/sensorhub/pkg/logger"
	"github.com/carverauto/sensorhub/pkg/models"
)

const defaultProcessTimeout = 30 * time.Second

// Disposition is what the consumer does with a message once processed.
type Disposition int

const (
	// Ack removes the message from the stream.
	Ack Disposition = iota
	// Nak asks for redelivery.
	Nak
	// Term drops the message without redelivery.
	Term
)

func (d Disposition) String() string {
	switch d {
	case Ack:
		return "ack"
	case Nak:
		return "nak"
	case Term:
		return "term"
	default:
		return "unknown"
	}
}

// Ingester accepts one submission.
type Ingester interface {
	Ingest(ctx context.Context, req *models.IngestRequest) (*models.IngestResult, error)
}

// Processor decodes a message and hands it to the gateway.
type Processor struct {
	ingester Ingester
	timeout  time.Duration
	logger   logger.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(ingester Ingester, log logger.Logger) *Processor {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Processor{
		ingester: ingester,
		timeout:  defaultProcessTimeout,
		logger:   log,
	}
}

// Process handles one message published on subject. A submission that can
// never succeed is terminated; anything else that fails is retried.
func (p *Processor) Process(ctx context.Context, subject string, data []byte) (Disposition, error) {
	var req models.IngestRequest

	if err := json.Unmarshal(data, &req); err != nil {
		return Term, fmt.Errorf("%w: malformed message: %w", models.ErrValidation, err)
	}

	if req.DeviceID == "" {
		req.DeviceID = deviceFromSubject(subject)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result, err := p.ingester.Ingest(ctx, &req)
	if err != nil {
		if errors.Is(err, models.ErrAuthentication) || errors.Is(err, models.ErrValidation) {
			return Term, err
		}

		return Nak, err
	}

	if result != nil && len(result.Warnings) > 0 {
		p.logger.Warn().
			Str("device_id", req.DeviceID).
			Strs("warnings", result.Warnings).
			Msg("Submission accepted with warnings")
	}

	return Ack, nil
}

// deviceFromSubject returns the last token of telemetry.ingest.<device>.
func deviceFromSubject(subject string) string {
	idx := strings.LastIndex(subject, ".")
	if idx < 0 || idx == len(subject)-1 {
		return ""
	}

	return subject[idx+1:]
}
