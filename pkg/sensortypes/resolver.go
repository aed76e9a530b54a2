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

// Package sensortypes resolves reading type references against the catalog.
package sensortypes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/carverauto/sensorhub/pkg/db"
	"github.com/carverauto/sensorhub/pkg/logger"
	"github.com/carverauto/sensorhub/pkg/models"
)

// strategy is one way of looking a type up. Exactly one strategy applies to
// a reading.
type strategy interface {
	lookup(ctx context.Context, catalog db.TypeCatalog, owner string) (*models.SensorType, error)
	key() string
}

type byID struct{ id string }

func (s byID) lookup(ctx context.Context, catalog db.TypeCatalog, _ string) (*models.SensorType, error) {
	return catalog.GetSensorType(ctx, s.id)
}

func (s byID) key() string { return "id:" + s.id }

// byName searches official types first, then the owner's custom types.
type byName struct{ name string }

func (s byName) lookup(ctx context.Context, catalog db.TypeCatalog, owner string) (*models.SensorType, error) {
	return catalog.FindSensorTypeByName(ctx, s.name, owner)
}

func (s byName) key() string { return "name:" + s.name }

// strategyFor picks the lookup for r. An id takes precedence over a name.
func strategyFor(r *models.Reading) (strategy, bool) {
	if id := strings.TrimSpace(r.TypeID); id != "" {
		return byID{id: id}, true
	}

	if name := strings.TrimSpace(r.TypeName); name != "" {
		return byName{name: name}, true
	}

	return nil, false
}

// Resolver validates readings against the type catalog. It never writes.
type Resolver struct {
	catalog db.TypeCatalog
	logger  logger.Logger
}

// NewResolver returns a Resolver backed by catalog.
func NewResolver(catalog db.TypeCatalog, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Resolver{catalog: catalog, logger: log}
}

// Resolve looks up the type referenced by reading on behalf of device.
// Failures are reported with models.NoReading as index.
func (r *Resolver) Resolve(ctx context.Context, device *models.Device, reading *models.Reading) (*models.SensorType, error) {
	return r.resolve(ctx, device, reading, models.NoReading, nil)
}

// ResolveBatch validates every reading before returning. The first failure
// aborts the batch and carries the index of the offending reading. Readings
// without a timestamp inherit batchTime.
func (r *Resolver) ResolveBatch(
	ctx context.Context, device *models.Device, readings []models.Reading, batchTime time.Time,
) ([]models.ResolvedReading, error) {
	if len(readings) == 0 {
		return nil, models.NewValidationError(models.ReasonMalformedReading, models.NoReading, "", "readings must not be empty")
	}

	seen := make(map[string]*models.SensorType, len(readings))
	resolved := make([]models.ResolvedReading, 0, len(readings))

	for i := range readings {
		reading := &readings[i]

		st, err := r.resolve(ctx, device, reading, i, seen)
		if err != nil {
			return nil, err
		}

		ts := batchTime
		if reading.Timestamp != nil && !reading.Timestamp.IsZero() {
			ts = reading.Timestamp.UTC()
		}

		resolved = append(resolved, models.ResolvedReading{
			TypeID:    st.ID,
			TypeName:  st.Name,
			Unit:      strings.TrimSpace(reading.Unit),
			Value:     strings.TrimSpace(string(reading.Value)),
			Timestamp: ts,
		})
	}

	return resolved, nil
}

func (r *Resolver) resolve(
	ctx context.Context, device *models.Device, reading *models.Reading, index int, seen map[string]*models.SensorType,
) (*models.SensorType, error) {
	ref := reading.Ref()

	s, ok := strategyFor(reading)
	if !ok {
		return nil, models.NewValidationError(models.ReasonMissingType, index, ref, "type_id or type_name is required")
	}

	if strings.TrimSpace(reading.Unit) == "" {
		return nil, models.NewValidationError(models.ReasonMalformedReading, index, ref, "unit is required")
	}

	if strings.TrimSpace(string(reading.Value)) == "" {
		return nil, models.NewValidationError(models.ReasonMalformedReading, index, ref, "value is required")
	}

	if st, ok := seen[s.key()]; ok {
		return st, nil
	}

	var owner string
	if device != nil {
		owner = device.Owner
	}

	st, err := s.lookup(ctx, r.catalog, owner)
	if errors.Is(err, db.ErrSensorTypeNotFound) {
		return nil, models.NewValidationError(models.ReasonUnknownType, index, ref, "sensor type is not registered")
	}

	if err != nil {
		r.logger.Error().Err(err).Str("ref", ref).Msg("Sensor type lookup failed")

		return nil, &models.PersistenceError{Op: "resolve sensor type " + ref, Err: err}
	}

	if seen != nil {
		seen[s.key()] = st
	}

	return st, nil
}
