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
	"fmt"
	"time"

	"github.com/carverauto/sensorhub/pkg/logger"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	defaultMaxPullMessages = 25
	defaultPullExpiry      = 30 * time.Second
	defaultAckWait         = 60 * time.Second
	defaultMaxDeliver      = 5
	fetchRetryDelay        = time.Second
)

// Consumer wraps a durable JetStream pull consumer.
type Consumer struct {
	consumer     jetstream.Consumer
	streamName   string
	consumerName string
	logger       logger.Logger
}

// NewConsumer creates or retrieves the durable pull consumer for subject.
func NewConsumer(ctx context.Context, js jetstream.JetStream, streamName, consumerName, subject string, log logger.Logger) (*Consumer, error) {
	consumer, err := js.Consumer(ctx, streamName, consumerName)
	if err != nil {
		if !errors.Is(err, jetstream.ErrConsumerNotFound) {
			return nil, fmt.Errorf("failed to look up consumer %s: %w", consumerName, err)
		}

		consumer, err = js.CreateConsumer(ctx, streamName, jetstream.ConsumerConfig{
			Durable:       consumerName,
			Description:   "sensorhub telemetry ingest",
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       defaultAckWait,
			MaxDeliver:    defaultMaxDeliver,
			FilterSubject: subject,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create consumer %s: %w", consumerName, err)
		}

		log.Info().
			Str("stream", streamName).
			Str("consumer", consumerName).
			Msg("Created pull consumer")
	}

	return &Consumer{
		consumer:     consumer,
		streamName:   streamName,
		consumerName: consumerName,
		logger:       log,
	}, nil
}

// ProcessMessages fetches and processes messages until ctx is done.
func (c *Consumer) ProcessMessages(ctx context.Context, processor *Processor) {
	c.logger.Info().
		Str("stream", c.streamName).
		Str("consumer", c.consumerName).
		Msg("Starting pull consumer")

	for {
		if ctx.Err() != nil {
			c.logger.Info().Msg("Stopping message processing")
			return
		}

		batch, err := c.consumer.Fetch(defaultMaxPullMessages, jetstream.FetchMaxWait(defaultPullExpiry))
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to fetch messages")

			select {
			case <-ctx.Done():
				return
			case <-time.After(fetchRetryDelay):
			}

			continue
		}

		for msg := range batch.Messages() {
			c.handle(ctx, msg, processor)
		}

		if err := batch.Error(); err != nil && !errors.Is(err, jetstream.ErrNoHeartbeat) {
			c.logger.Debug().Err(err).Msg("Fetch ended with error")
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg jetstream.Msg, processor *Processor) {
	disposition, err := processor.Process(ctx, msg.Subject(), msg.Data())
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("subject", msg.Subject()).
			Str("disposition", disposition.String()).
			Msg("Failed to process telemetry message")
	}

	recordMessage(ctx, disposition)

	var ackErr error

	switch disposition {
	case Ack:
		ackErr = msg.Ack()
	case Nak:
		ackErr = msg.Nak()
	case Term:
		ackErr = msg.Term()
	}

	if ackErr != nil {
		c.logger.Error().
			Err(ackErr).
			Str("disposition", disposition.String()).
			Msg("Failed to acknowledge message")
	}
}
