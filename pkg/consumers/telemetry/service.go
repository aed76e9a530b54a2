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

package telemetry

import (
	"context"
	"errors"
	"sync"

	"github.com/carverauto/sensorhub/pkg/lifecycle"
	"github.com/carverauto/sensorhub/pkg/logger"
	"github.com/carverauto/sensorhub/pkg/models"
	"github.com/carverauto/sensorhub/pkg/natsutil"
	"github.com/nats-io/nats.go"
)

var errNilConnection = errors.New("nats connection is required")

// Service runs the ingest consumer as a lifecycle.Service. The NATS
// connection is owned by the caller.
type Service struct {
	cfg       *models.NATSConfig
	nc        *nats.Conn
	processor *Processor
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	logger    logger.Logger
}

// NewService creates the consumer service.
func NewService(cfg *models.NATSConfig, nc *nats.Conn, ingester Ingester, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Service{
		cfg:       cfg,
		nc:        nc,
		processor: NewProcessor(ingester, log),
		logger:    log,
	}
}

// Start ensures the ingest stream and consumer, then begins processing.
func (s *Service) Start(ctx context.Context) error {
	if s.nc == nil {
		return errNilConnection
	}

	js, err := natsutil.NewJetStream(s.nc, s.cfg.Domain)
	if err != nil {
		return err
	}

	if err := natsutil.EnsureStream(ctx, js, s.cfg.IngestStream, s.cfg.IngestSubject); err != nil {
		return err
	}

	consumer, err := NewConsumer(ctx, js, s.cfg.IngestStream, s.cfg.ConsumerName, s.cfg.IngestSubject, s.logger)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		consumer.ProcessMessages(runCtx, s.processor)
	}()

	s.logger.Info().
		Str("stream", s.cfg.IngestStream).
		Str("subject", s.cfg.IngestSubject).
		Msg("Telemetry consumer started")

	return nil
}

// Stop ends the fetch loop and waits for in-flight messages.
func (s *Service) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})

	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info().Msg("Telemetry consumer stopped")

	return nil
}

var _ lifecycle.Service = (*Service)(nil)
