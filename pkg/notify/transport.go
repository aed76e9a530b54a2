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

// Package notify implements the notification transports used by the alert
// dispatcher.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carverauto/sensorhub/pkg/alerts"
	"github.com/carverauto/sensorhub/pkg/logger"
	"github.com/carverauto/sensorhub/pkg/models"
	"github.com/wneessen/go-mail"
)

const (
	tlsModeSSL      = "ssl"
	tlsModeStartTLS = "starttls"
	tlsModeNone     = "none"

	defaultSMTPPort    = 587
	defaultSMTPSSLPort = 465
	defaultSMTPTimeout = 15 * time.Second
)

var (
	errMailConfigMissing = errors.New("mail configuration is required")
	errUnknownTLSMode    = errors.New("unknown mail tls mode")
)

// SMTPTransport sends notifications as plain text mail.
type SMTPTransport struct {
	host string
	from string
	opts []mail.Option
}

var _ alerts.Transport = (*SMTPTransport)(nil)

// NewSMTPTransport validates cfg and prepares the client options. No
// connection is made until the first send.
func NewSMTPTransport(cfg *models.MailConfig) (*SMTPTransport, error) {
	if cfg == nil || cfg.Host == "" {
		return nil, errMailConfigMissing
	}

	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}

	// constructing a client validates host and options without dialing
	if _, err := mail.NewClient(cfg.Host, opts...); err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	return &SMTPTransport{host: cfg.Host, from: cfg.From, opts: opts}, nil
}

func clientOptions(cfg *models.MailConfig) ([]mail.Option, error) {
	timeout := time.Duration(cfg.Timeout)
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}

	opts := []mail.Option{mail.WithTimeout(timeout)}

	port := cfg.Port

	switch strings.ToLower(cfg.TLS) {
	case tlsModeSSL:
		if port == 0 {
			port = defaultSMTPSSLPort
		}

		opts = append(opts, mail.WithSSL())
	case tlsModeStartTLS, "":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	case tlsModeNone:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownTLSMode, cfg.TLS)
	}

	if port == 0 {
		port = defaultSMTPPort
	}

	opts = append(opts, mail.WithPort(port))

	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	return opts, nil
}

// Send delivers n over a fresh connection.
func (t *SMTPTransport) Send(ctx context.Context, n *alerts.Notification) error {
	msg, err := t.message(n)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(t.host, t.opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", n.To, err)
	}

	return nil
}

func (t *SMTPTransport) message(n *alerts.Notification) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if err := msg.From(t.from); err != nil {
		return nil, fmt.Errorf("sender %q: %w", t.from, err)
	}

	if err := msg.To(n.To); err != nil {
		return nil, fmt.Errorf("recipient %q: %w", n.To, err)
	}

	msg.Subject(n.Subject)
	msg.SetBodyString(mail.TypeTextPlain, n.Body)

	return msg, nil
}

// LogTransport writes notifications to the log instead of sending them. It
// stands in when mail is disabled.
type LogTransport struct {
	logger logger.Logger
}

var _ alerts.Transport = (*LogTransport)(nil)

// NewLogTransport returns a transport that only logs.
func NewLogTransport(log logger.Logger) *LogTransport {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &LogTransport{logger: log}
}

// Send logs n.
func (t *LogTransport) Send(_ context.Context, n *alerts.Notification) error {
	t.logger.Info().
		Str("to", n.To).
		Str("subject", n.Subject).
		Msg("Notification (mail disabled)")

	return nil
}

// NewTransport picks the SMTP transport when mail is enabled and the log
// transport otherwise.
func NewTransport(cfg *models.MailConfig, log logger.Logger) (alerts.Transport, error) {
	if cfg == nil || !cfg.Enabled {
		return NewLogTransport(log), nil
	}

	return NewSMTPTransport(cfg)
}
