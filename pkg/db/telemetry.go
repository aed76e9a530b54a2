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

package db

import (
	"context"
	"fmt"

	"github.com/carverauto/sensorhub/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	insertBatchSQL = `
INSERT INTO telemetry_batches (id, device_id, batch_time, location_x, location_y, received_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	insertReadingSQL = `
INSERT INTO telemetry_readings (batch_id, seq, type_id, type_name, unit, value, reading_time)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

// AppendBatch writes the batch row and its readings in one transaction.
// Every call gets a new id, so resubmitting identical data yields a second
// record. Transient lock and timeout failures replay the whole transaction.
func (db *DB) AppendBatch(ctx context.Context, batch *models.TelemetryBatch) error {
	if batch == nil {
		return ErrBatchNil
	}

	if len(batch.Readings) == 0 {
		return ErrBatchEmpty
	}

	batch.ID = uuid.NewString()

	if batch.ReceivedAt.IsZero() {
		batch.ReceivedAt = db.now()
	}

	queued := buildTelemetryBatch(batch)

	err := db.withRetry(ctx, "append_batch", func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, db.executor, func(tx pgx.Tx) error {
			return sendBatchExecAll(ctx, queued, tx.SendBatch, "telemetry")
		})
	})
	if err != nil {
		return fmt.Errorf("%w telemetry batch for %s: %w", ErrFailedToInsert, batch.DeviceID, err)
	}

	return nil
}

func buildTelemetryBatch(batch *models.TelemetryBatch) *pgx.Batch {
	var locX, locY *string

	if batch.Location != nil {
		locX, locY = &batch.Location.X, &batch.Location.Y
	}

	b := &pgx.Batch{}
	b.Queue(insertBatchSQL, batch.ID, batch.DeviceID, batch.Timestamp, locX, locY, batch.ReceivedAt)

	for i := range batch.Readings {
		r := &batch.Readings[i]
		b.Queue(insertReadingSQL, batch.ID, i, r.TypeID, r.TypeName, r.Unit, r.Value, r.Timestamp)
	}

	return b
}
