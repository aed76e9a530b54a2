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

// Package natsutil wires sensorhub to NATS JetStream.
package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carverauto/sensorhub/pkg/logger"
	"github.com/carverauto/sensorhub/pkg/models"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	eventSource         = "sensorhub/gateway"
	alertFiredEventType = "com.carverauto.sensorhub.alert.fired"
)

var errNilEvent = errors.New("nil alert event")

// jsPublisher is the slice of jetstream.JetStream the publisher needs.
type jsPublisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// EventPublisher publishes CloudEvents to a JetStream stream.
type EventPublisher struct {
	js      jsPublisher
	stream  string
	subject string
	logger  logger.Logger
	now     func() time.Time
}

// NewEventPublisher creates a publisher that sends alert events to subject.
func NewEventPublisher(js jsPublisher, streamName, subject string, log logger.Logger) *EventPublisher {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &EventPublisher{
		js:      js,
		stream:  streamName,
		subject: subject,
		logger:  log,
		now:     time.Now,
	}
}

// Stream returns the stream the publisher writes to.
func (p *EventPublisher) Stream() string {
	return p.stream
}

// PublishAlertFired publishes an alert fired event.
func (p *EventPublisher) PublishAlertFired(ctx context.Context, data *models.AlertFiredEventData) error {
	if data == nil {
		return errNilEvent
	}

	ts := data.FiredAt
	if ts.IsZero() {
		ts = p.now()
	}

	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            alertFiredEventType,
		DataContentType: "application/json",
		Subject:         p.subject,
		Time:            &ts,
		Data:            data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alert fired event: %w", err)
	}

	ack, err := p.js.Publish(ctx, event.Subject, payload)
	if err != nil {
		return fmt.Errorf("failed to publish alert fired event: %w", err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("subject", event.Subject).
		Uint64("seq", ack.Sequence).
		Msg("Published alert event")

	return nil
}

// ConnectWithSecurity creates a NATS connection, adding mTLS when security
// is configured.
func ConnectWithSecurity(natsURL string, security *models.SecurityConfig, log logger.Logger, extraOpts ...nats.Option) (*nats.Conn, error) {
	if log == nil {
		log = logger.NewTestLogger()
	}

	var opts []nats.Option

	if security != nil && security.Mode == models.SecurityModeMTLS {
		tlsConf, err := TLSConfig(security)
		if err != nil {
			return nil, fmt.Errorf("failed to build NATS TLS config: %w", err)
		}

		opts = append(opts, nats.Secure(tlsConf))
	}

	opts = append(opts,
		nats.Name("sensorhub"),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)

	opts = append(opts, extraOpts...)

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info().Str("url", nc.ConnectedUrl()).Msg("Connected to NATS")

	return nc, nil
}

// NewJetStream returns a JetStream context, scoped to domain when set.
func NewJetStream(nc *nats.Conn, domain string) (jetstream.JetStream, error) {
	if domain == "" {
		js, err := jetstream.New(nc)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}

		return js, nil
	}

	js, err := jetstream.NewWithDomain(nc, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context with domain %s: %w", domain, err)
	}

	return js, nil
}

// EnsureStream makes sure streamName exists and captures subject.
func EnsureStream(ctx context.Context, js jetstream.JetStream, streamName, subject string) error {
	stream, err := js.Stream(ctx, streamName)
	if err != nil {
		if !isStreamMissingErr(err) {
			return fmt.Errorf("failed to look up stream %s: %w", streamName, err)
		}

		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     streamName,
			Subjects: []string{subject},
		})
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", streamName, err)
		}

		return nil
	}

	cfg := stream.CachedInfo().Config
	subjects := ensureSubjectList(cfg.Subjects, subject)

	if len(subjects) == len(cfg.Subjects) {
		return nil
	}

	cfg.Subjects = subjects

	if _, err := js.UpdateStream(ctx, cfg); err != nil {
		return fmt.Errorf("failed to add subject %s to stream %s: %w", subject, streamName, err)
	}

	return nil
}

// CreateEventPublisher ensures the events stream and returns a publisher for it.
func CreateEventPublisher(ctx context.Context, nc *nats.Conn, cfg *models.NATSConfig, log logger.Logger) (*EventPublisher, error) {
	js, err := NewJetStream(nc, cfg.Domain)
	if err != nil {
		return nil, err
	}

	if err := EnsureStream(ctx, js, cfg.EventsStream, cfg.EventsSubject); err != nil {
		return nil, err
	}

	return NewEventPublisher(js, cfg.EventsStream, cfg.EventsSubject, log), nil
}

func ensureSubjectList(subjects []string, subject string) []string {
	for _, existing := range subjects {
		if matchesSubject(existing, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

// matchesSubject reports whether pattern, which may hold * and > wildcards,
// covers subject.
func matchesSubject(pattern, subject string) bool {
	pTokens := strings.Split(pattern, ".")
	sTokens := strings.Split(subject, ".")

	for i, tok := range pTokens {
		if tok == ">" {
			return len(sTokens) > i
		}

		if i >= len(sTokens) {
			return false
		}

		if tok != "*" && tok != sTokens[i] {
			return false
		}
	}

	return len(pTokens) == len(sTokens)
}

func isStreamMissingErr(err error) bool {
	return errors.Is(err, jetstream.ErrStreamNotFound) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrStreamNotFound) ||
		errors.Is(err, nats.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrNoResponders)
}
