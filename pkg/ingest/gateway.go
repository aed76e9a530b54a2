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

// Package ingest is the entry point for device submissions. It authenticates
// the device, persists telemetry and runs the evaluation and reconciliation
// stages on committed data.
package ingest

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/carverauto/sensorhub/pkg/alerts"
	"github.com/carverauto/sensorhub/pkg/db"
	"github.com/carverauto/sensorhub/pkg/logger"
	"github.com/carverauto/sensorhub/pkg/models"
	"github.com/carverauto/sensorhub/pkg/reconcile"
	"github.com/carverauto/sensorhub/pkg/sensortypes"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "sensorhub.ingest"

	pathTelemetry = "telemetry"
	pathHeartbeat = "heartbeat"
	pathRejected  = "rejected"
)

// Service is the ingestion gateway.
type Service struct {
	store      db.Service
	resolver   *sensortypes.Resolver
	engine     *alerts.Engine
	reconciler *reconcile.Reconciler
	locks      *deviceLocks
	tracer     trace.Tracer
	logger     logger.Logger
	now        func() time.Time
}

// NewService wires the gateway stages together.
func NewService(
	store db.Service,
	resolver *sensortypes.Resolver,
	engine *alerts.Engine,
	reconciler *reconcile.Reconciler,
	log logger.Logger,
) *Service {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Service{
		store:      store,
		resolver:   resolver,
		engine:     engine,
		reconciler: reconciler,
		locks:      newDeviceLocks(),
		tracer:     logger.GetTracer(tracerName),
		logger:     log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Ingest handles one submission. Only authentication, validation and the
// telemetry write can fail the call; once the batch is committed, rule and
// reconciliation faults are reported as warnings.
func (s *Service) Ingest(ctx context.Context, req *models.IngestRequest) (result *models.IngestResult, err error) {
	ctx, span := s.tracer.Start(ctx, "ingest")
	defer span.End()

	path := pathRejected

	defer func() {
		status := statusOf(err)
		recordRequest(ctx, path, status)

		span.SetAttributes(attribute.String("path", path), attribute.String("status", status))

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
		} else {
			span.SetStatus(codes.Ok, "submission accepted")
		}
	}()

	if req == nil {
		return nil, models.NewValidationError(models.ReasonEmptyPayload, models.NoReading, "", "request body is required")
	}

	span.SetAttributes(
		attribute.String("device_id", req.DeviceID),
		attribute.Int("reading_count", len(req.Readings)),
	)

	device, err := s.authenticate(ctx, req)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(device.ID)
	defer unlock()

	switch {
	case req.IsHeartbeat():
		path = pathHeartbeat
		return s.heartbeat(ctx, device, req.ReportedConfig)
	case req.Readings == nil:
		return nil, models.NewValidationError(models.ReasonEmptyPayload, models.NoReading, "",
			"either readings or reported_config is required")
	default:
		path = pathTelemetry
		return s.telemetry(ctx, device, req)
	}
}

// authenticate looks the device up and compares the credential in constant
// time. Unknown devices and wrong secrets are indistinguishable to the caller.
func (s *Service) authenticate(ctx context.Context, req *models.IngestRequest) (*models.Device, error) {
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" || req.Credential == "" {
		return nil, &models.AuthenticationError{DeviceID: deviceID}
	}

	device, err := s.store.GetDevice(ctx, deviceID)
	if errors.Is(err, db.ErrDeviceNotFound) {
		s.logger.Warn().Str("device_id", deviceID).Msg("Submission for unknown device")
		return nil, &models.AuthenticationError{DeviceID: deviceID}
	}

	if err != nil {
		return nil, &models.PersistenceError{Op: "load device " + deviceID, Err: err}
	}

	if subtle.ConstantTimeCompare([]byte(device.Secret), []byte(req.Credential)) != 1 {
		s.logger.Warn().Str("device_id", deviceID).Msg("Credential mismatch")
		return nil, &models.AuthenticationError{DeviceID: deviceID}
	}

	return device, nil
}

func (s *Service) heartbeat(
	ctx context.Context, device *models.Device, reported *models.ConfigurationProfile,
) (*models.IngestResult, error) {
	res, err := s.reconciler.Reconcile(ctx, device, reported)
	if err != nil {
		return nil, err
	}

	return &models.IngestResult{Config: res}, nil
}

func (s *Service) telemetry(ctx context.Context, device *models.Device, req *models.IngestRequest) (*models.IngestResult, error) {
	now := s.now()

	batchTime := now
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		batchTime = req.Timestamp.UTC()
	}

	readings, err := s.resolver.ResolveBatch(ctx, device, req.Readings, batchTime)
	if err != nil {
		return nil, err
	}

	batch := &models.TelemetryBatch{
		DeviceID:   device.ID,
		Timestamp:  batchTime,
		Location:   req.Location,
		Readings:   readings,
		ReceivedAt: now,
	}

	if err := s.store.AppendBatch(ctx, batch); err != nil {
		s.logger.Error().Err(err).Str("device_id", device.ID).Msg("Failed to persist telemetry batch")
		return nil, &models.PersistenceError{Op: "append telemetry batch", Err: err}
	}

	recordPersisted(ctx, len(batch.Readings))

	s.logger.Debug().
		Str("device_id", device.ID).
		Str("batch_id", batch.ID).
		Int("readings", len(batch.Readings)).
		Msg("Telemetry batch committed")

	// The batch is committed: a client going away must not cut the
	// evaluation and audit short.
	postCtx := context.WithoutCancel(ctx)

	result := &models.IngestResult{Batch: batch}

	owner := s.lookupOwner(postCtx, device, result)

	summary, warnings := s.engine.Process(postCtx, batch, device, owner)
	result.Alerts = summary

	for _, w := range warnings {
		result.Warnings = append(result.Warnings, w.Error())
	}

	if req.ReportedConfig != nil {
		cfg, err := s.reconciler.Reconcile(postCtx, device, req.ReportedConfig)
		if err != nil {
			result.Warnings = append(result.Warnings, err.Error())
		} else {
			result.Config = cfg
		}
	}

	return result, nil
}

// lookupOwner resolves the device owner for notifications. A failed lookup
// only degrades the message text.
func (s *Service) lookupOwner(ctx context.Context, device *models.Device, result *models.IngestResult) *models.OwnerContext {
	if device.Owner == "" {
		return nil
	}

	owner, err := s.store.GetOwner(ctx, device.Owner)
	if err != nil {
		s.logger.Warn().Err(err).Str("owner", device.Owner).Msg("Owner lookup failed")
		result.Warnings = append(result.Warnings, "owner lookup: "+err.Error())

		return nil
	}

	return owner
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrAuthentication):
		return "unauthorized"
	case errors.Is(err, models.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
