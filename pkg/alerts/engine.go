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
	"sync"
	"time"

	"github.com/carverauto/sensorhub/pkg/logger"
	"github.com/carverauto/sensorhub/pkg/models"
	"golang.org/x/sync/semaphore"
)

const defaultWorkers = 8

// EventPublisher announces fired rules to other services.
type EventPublisher interface {
	PublishAlertFired(ctx context.Context, event *models.AlertFiredEventData) error
}

// Engine runs the evaluation stage of a committed batch: match, evaluate,
// dispatch, audit.
type Engine struct {
	matcher    *Matcher
	dispatcher *Dispatcher
	auditor    *Auditor
	publisher  EventPublisher
	workers    int
	logger     logger.Logger
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithWorkers bounds how many reading and rule pairs are processed at once.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithEventPublisher announces every firing through p.
func WithEventPublisher(p EventPublisher) EngineOption {
	return func(e *Engine) {
		e.publisher = p
	}
}

// NewEngine wires the evaluation stage.
func NewEngine(matcher *Matcher, dispatcher *Dispatcher, auditor *Auditor, log logger.Logger, opts ...EngineOption) *Engine {
	if log == nil {
		log = logger.NewTestLogger()
	}

	e := &Engine{
		matcher:    matcher,
		dispatcher: dispatcher,
		auditor:    auditor,
		workers:    defaultWorkers,
		logger:     log,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

type candidate struct {
	reading *models.ResolvedReading
	rule    *models.ThresholdRule
}

// Process evaluates every reading of batch against the rules on its type.
// Nothing here can undo the committed batch: faults are returned as warnings
// next to the summary.
func (e *Engine) Process(
	ctx context.Context, batch *models.TelemetryBatch, device *models.Device, owner *models.OwnerContext,
) (*models.AlertSummary, []error) {
	summary := &models.AlertSummary{}

	ix, err := e.matcher.MatchRules(ctx, batch.TypeNames())
	if err != nil {
		e.logger.Error().Err(err).Str("device_id", batch.DeviceID).Msg("Rule lookup failed")

		return summary, []error{err}
	}

	var candidates []candidate

	for i := range batch.Readings {
		reading := &batch.Readings[i]
		for _, rule := range ix.For(reading.TypeName) {
			candidates = append(candidates, candidate{reading: reading, rule: rule})
		}
	}

	summary.RulesEvaluated = len(candidates)
	recordEvaluated(ctx, len(candidates))

	if len(candidates) == 0 {
		return summary, nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		warnings []error
	)

	addWarning := func(err error) {
		mu.Lock()
		warnings = append(warnings, err)
		mu.Unlock()
	}

	sem := semaphore.NewWeighted(int64(e.workers))
	slots := make([]*models.FiredAlert, len(candidates))

	for i, c := range candidates {
		if err := sem.Acquire(ctx, 1); err != nil {
			addWarning(err)
			break
		}

		wg.Go(func() {
			defer sem.Release(1)

			if !Evaluate(c.rule, c.reading) {
				return
			}

			fired, err := e.fire(ctx, batch, c, device, owner)
			slots[i] = fired

			if err != nil {
				addWarning(err)
			}
		})
	}

	wg.Wait()

	for _, fired := range slots {
		if fired == nil {
			continue
		}

		summary.Fired++
		summary.NotificationsSent += fired.Recipients - len(fired.Failed)
		summary.NotificationsFailed += len(fired.Failed)
		summary.Firings = append(summary.Firings, *fired)
	}

	return summary, warnings
}

// fire dispatches and then audits one firing. The audit runs whatever the
// delivery outcome was.
func (e *Engine) fire(
	ctx context.Context, batch *models.TelemetryBatch, c candidate, device *models.Device, owner *models.OwnerContext,
) (*models.FiredAlert, error) {
	recordFired(ctx, string(c.rule.Condition))

	report := e.dispatcher.Dispatch(ctx, c.rule, c.reading, device, owner)
	message := Summary(c.rule, c.reading)

	record, auditErr := e.auditor.Record(ctx, c.rule, message, batch.DeviceID, time.Time{})

	fired := &models.FiredAlert{
		RuleID:     c.rule.ID,
		SensorType: c.rule.SensorType,
		Message:    message,
		FiredAt:    record.Timestamp,
		Recipients: report.Attempted(),
		Failed:     report.FailedRecipients(),
		Audited:    auditErr == nil,
	}

	e.logger.Info().
		Str("rule_id", c.rule.ID).
		Str("device_id", batch.DeviceID).
		Str("sensor_type", c.rule.SensorType).
		Str("value", c.reading.Value).
		Int("sent", len(report.Sent)).
		Int("failed", len(report.Failures)).
		Msg("Threshold rule fired")

	e.publish(ctx, batch, c, device, owner, fired)

	return fired, auditErr
}

func (e *Engine) publish(
	ctx context.Context,
	batch *models.TelemetryBatch,
	c candidate,
	device *models.Device,
	owner *models.OwnerContext,
	fired *models.FiredAlert,
) {
	if e.publisher == nil {
		return
	}

	event := &models.AlertFiredEventData{
		RuleID:     c.rule.ID,
		SensorType: c.rule.SensorType,
		Condition:  c.rule.Condition,
		Threshold:  c.rule.Threshold,
		Value:      c.reading.Value,
		Unit:       c.reading.Unit,
		DeviceID:   batch.DeviceID,
		DeviceName: device.DisplayName(),
		BatchID:    batch.ID,
		Message:    fired.Message,
		FiredAt:    fired.FiredAt,
		Recipients: fired.Recipients,
		Failed:     fired.Failed,
	}

	if owner != nil {
		event.Owner = owner.Username
	} else if device != nil {
		event.Owner = device.Owner
	}

	if err := e.publisher.PublishAlertFired(ctx, event); err != nil {
		e.logger.Warn().Err(err).Str("rule_id", c.rule.ID).Msg("Failed to publish alert event")
	}
}
