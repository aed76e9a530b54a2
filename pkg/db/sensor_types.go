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
	"errors"
	"fmt"

	"github.com/carverauto/sensorhub/pkg/models"
	"github.com/jackc/pgx/v5"
)

const (
	sensorTypeColumns = `id, name, description, unit, official, COALESCE(owner, '')`

	getSensorTypeSQL = `SELECT ` + sensorTypeColumns + `
FROM sensor_types
WHERE id = $1`

	findSensorTypeByNameSQL = `SELECT ` + sensorTypeColumns + `
FROM sensor_types
WHERE name = $1 AND (official OR owner = $2)
ORDER BY official DESC
LIMIT 1`
)

// GetSensorType looks a catalog entry up by id.
func (db *DB) GetSensorType(ctx context.Context, id string) (*models.SensorType, error) {
	return db.querySensorType(ctx, getSensorTypeSQL, "id "+id, id)
}

// FindSensorTypeByName resolves name among official types first and then
// among the custom types owned by owner.
func (db *DB) FindSensorTypeByName(ctx context.Context, name, owner string) (*models.SensorType, error) {
	return db.querySensorType(ctx, findSensorTypeByNameSQL, "name "+name, name, owner)
}

func (db *DB) querySensorType(ctx context.Context, query, ref string, args ...any) (*models.SensorType, error) {
	var st models.SensorType

	err := db.executor.QueryRow(ctx, query, args...).Scan(
		&st.ID,
		&st.Name,
		&st.Description,
		&st.Unit,
		&st.Official,
		&st.Owner,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSensorTypeNotFound, ref)
	}

	if err != nil {
		return nil, fmt.Errorf("%w sensor type %s: %w", ErrFailedToQuery, ref, err)
	}

	return &st, nil
}
