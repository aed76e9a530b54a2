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

package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carverauto/sensorhub/pkg/logger"
	"github.com/carverauto/sensorhub/pkg/models"
	"golang.org/x/sync/semaphore"
)

//go:generate mockgen -destination=mock_transport.go -package=alerts github.com/carverauto/sensorhub/pkg/alerts Transport

const (
	defaultSendTimeout        = 10 * time.Second
	defaultMaxConcurrentSends = 16
)

var errNoTransport = errors.New("no notification transport configured")

// Notification is one outgoing message to one recipient.
type Notification struct {
	To      string
	Subject string
	Body    string
}

// Transport delivers a single notification.
type Transport interface {
	Send(ctx context.Context, n *Notification) error
}

// DispatchReport is the per-recipient outcome of one firing.
type DispatchReport struct {
	Message  Message
	Sent     []string
	Failures []*models.DeliveryError
}

// Attempted is the number of recipients a send was attempted for.
func (r *DispatchReport) Attempted() int {
	return len(r.Sent) + len(r.Failures)
}

// FailedRecipients lists the recipients whose send failed.
func (r *DispatchReport) FailedRecipients() []string {
	if len(r.Failures) == 0 {
		return nil
	}

	out := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f.Recipient)
	}

	return out
}

// Dispatcher sends one message per rule recipient. Sends are independent:
// a failure is recorded for that recipient and never retried.
type Dispatcher struct {
	transport   Transport
	renderer    *Renderer
	sem         *semaphore.Weighted
	sendTimeout time.Duration
	logger      logger.Logger
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithSendTimeout bounds each individual send.
func WithSendTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.sendTimeout = d
		}
	}
}

// WithMaxConcurrentSends caps transport concurrency across all firings.
func WithMaxConcurrentSends(n int) DispatcherOption {
	return func(disp *Dispatcher) {
		if n > 0 {
			disp.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithRenderer replaces the default templates.
func WithRenderer(r *Renderer) DispatcherOption {
	return func(disp *Dispatcher) {
		if r != nil {
			disp.renderer = r
		}
	}
}

// NewDispatcher returns a Dispatcher delivering through transport.
func NewDispatcher(transport Transport, log logger.Logger, opts ...DispatcherOption) *Dispatcher {
	if log == nil {
		log = logger.NewTestLogger()
	}

	d := &Dispatcher{
		transport:   transport,
		sem:         semaphore.NewWeighted(defaultMaxConcurrentSends),
		sendTimeout: defaultSendTimeout,
		logger:      log,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.renderer == nil {
		d.renderer = defaultRenderer()
	}

	return d
}

type sendResult struct {
	index int
	err   error
}

// Dispatch renders the notification for a firing and sends it to every
// recipient of rule concurrently. It returns once every send has finished
// or timed out.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	rule *models.ThresholdRule,
	reading *models.ResolvedReading,
	device *models.Device,
	owner *models.OwnerContext,
) *DispatchReport {
	data := NewMessageData(rule, reading, device, owner)

	msg, err := d.renderer.Render(data)
	if err != nil {
		d.logger.Warn().Err(err).Str("rule_id", rule.ID).Msg("Falling back to plain notification text")

		msg = Message{
			Subject: fmt.Sprintf("Alert: %s is %s %s", data.SensorType, data.Condition, data.Threshold),
			Body:    data.Summary,
		}
	}

	report := &DispatchReport{Message: msg}

	recipients := recipientsOf(rule)
	if len(recipients) == 0 {
		return report
	}

	results := make(chan sendResult, len(recipients))

	for i, to := range recipients {
		go func() {
			results <- sendResult{index: i, err: d.send(ctx, to, msg)}
		}()
	}

	errs := make([]error, len(recipients))
	for range recipients {
		res := <-results
		errs[res.index] = res.err
	}

	for i, to := range recipients {
		if errs[i] == nil {
			report.Sent = append(report.Sent, to)
			continue
		}

		d.logger.Warn().
			Err(errs[i]).
			Str("rule_id", rule.ID).
			Str("recipient", to).
			Msg("Notification delivery failed")

		report.Failures = append(report.Failures, &models.DeliveryError{Recipient: to, Err: errs[i]})
	}

	recordDeliveries(ctx, len(report.Sent), len(report.Failures))

	return report
}

func (d *Dispatcher) send(ctx context.Context, to string, msg Message) error {
	if d.transport == nil {
		return errNoTransport
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	if err := d.sem.Acquire(sendCtx, 1); err != nil {
		return err
	}

	// The slot is held until the transport returns, even after a timeout,
	// so a transport that ignores its context still counts against the cap.
	done := make(chan error, 1)

	go func() {
		defer d.sem.Release(1)

		done <- d.transport.Send(sendCtx, &Notification{To: to, Subject: msg.Subject, Body: msg.Body})
	}()

	select {
	case err := <-done:
		return err
	case <-sendCtx.Done():
		return sendCtx.Err()
	}
}

// recipientsOf returns the trimmed, non-empty recipients of rule in order.
func recipientsOf(rule *models.ThresholdRule) []string {
	out := make([]string, 0, len(rule.Emails))

	for _, e := range rule.Emails {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}

	return out
}
