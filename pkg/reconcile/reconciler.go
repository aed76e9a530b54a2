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

// Package reconcile converges device settings toward the server held desired
// profile. Devices pull: every report is answered with either synced or the
// full desired profile, and there is no acknowledgement step.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/sensorhub/pkg/db"
	"github.com/carverauto/sensorhub/pkg/logger"
	"github.com/carverauto/sensorhub/pkg/models"
	"github.com/cenkalti/backoff/v5"
)

const (
	defaultMaxElapsed     = 5 * time.Second
	defaultInitialBackoff = 20 * time.Millisecond
	defaultMaxBackoff     = 500 * time.Millisecond
)

// Reconciler stores reported profiles and compares them with the desired one.
type Reconciler struct {
	store      db.DeviceStore
	logger     logger.Logger
	maxElapsed time.Duration
	newBackOff func() backoff.BackOff
}

// Option customizes a Reconciler.
type Option func(*Reconciler)

// WithMaxElapsed bounds the total time spent retrying version conflicts.
func WithMaxElapsed(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.maxElapsed = d
		}
	}
}

// WithBackOff replaces the retry schedule used on version conflicts.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(r *Reconciler) {
		if fn != nil {
			r.newBackOff = fn
		}
	}
}

// New returns a Reconciler writing through store.
func New(store db.DeviceStore, log logger.Logger, opts ...Option) *Reconciler {
	if log == nil {
		log = logger.NewTestLogger()
	}

	r := &Reconciler{
		store:      store,
		logger:     log,
		maxElapsed: defaultMaxElapsed,
		newBackOff: defaultBackOff,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = defaultInitialBackoff
	bo.MaxInterval = defaultMaxBackoff
	bo.Multiplier = 1.6
	bo.RandomizationFactor = 0.2

	return bo
}

// Reconcile records reported as the device's reported profile and returns
// the settings delta. The write is a compare-and-swap on the config
// version; on conflict the device is re-read and the write retried. The
// desired profile compared is the one of the snapshot the write succeeded
// against. On success device reflects the stored state.
func (r *Reconciler) Reconcile(
	ctx context.Context, device *models.Device, reported *models.ConfigurationProfile,
) (*models.ReconcileResult, error) {
	if reported == nil {
		return nil, models.NewValidationError(models.ReasonEmptyPayload, models.NoReading, "", "reported_config is required")
	}

	snapshot := device
	attempts := 0

	operation := func() (int64, error) {
		attempts++

		if attempts > 1 {
			fresh, err := r.store.GetDevice(ctx, device.ID)
			if err != nil {
				return 0, backoff.Permanent(err)
			}

			snapshot = fresh
		}

		version, err := r.store.UpdateReportedConfig(ctx, device.ID, reported, snapshot.ConfigVersion)
		if errors.Is(err, db.ErrVersionConflict) {
			recordConflict(ctx)
			return 0, err
		}

		if err != nil {
			return 0, backoff.Permanent(err)
		}

		return version, nil
	}

	version, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(r.newBackOff()),
		backoff.WithMaxElapsedTime(r.maxElapsed))
	if err != nil {
		recordResult(ctx, "error")

		r.logger.Error().
			Err(err).
			Str("device_id", device.ID).
			Int("attempts", attempts).
			Msg("Failed to store reported config")

		return nil, &models.PersistenceError{Op: fmt.Sprintf("store reported config of %s", device.ID), Err: err}
	}

	if snapshot != device {
		*device = *snapshot
	}

	device.ReportedConfig = reported.Clone()
	device.ConfigVersion = version

	result := Compare(reported, device.DesiredConfig)
	recordResult(ctx, string(result.Status))

	if result.Status == models.ReconcileDiverged {
		r.logger.Info().
			Str("device_id", device.ID).
			Strs("fields", reported.Diff(device.DesiredConfig)).
			Int64("config_version", version).
			Msg("Device config diverges from desired state")
	}

	return result, nil
}

// Compare is the pure part of reconciliation. No desired profile means there
// is nothing to push.
func Compare(reported, desired *models.ConfigurationProfile) *models.ReconcileResult {
	if desired == nil || reported.Equal(desired) {
		return &models.ReconcileResult{Status: models.ReconcileSynced}
	}

	return &models.ReconcileResult{Status: models.ReconcileDiverged, DesiredConfig: desired.Clone()}
}
