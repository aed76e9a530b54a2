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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/carverauto/sensorhub/pkg/models"
	"github.com/jackc/pgx/v5"
)

const (
	getDeviceSQL = `
SELECT id, name, description, secret, types, owner, is_public,
       reported_config, desired_config, config_version, created_at, updated_at
FROM devices
WHERE id = $1`

	updateReportedConfigSQL = `
UPDATE devices
SET reported_config = $2,
    config_version = config_version + 1,
    updated_at = $4
WHERE id = $1 AND config_version = $3
RETURNING config_version`

	getOwnerSQL = `
SELECT username, display_name, email
FROM users
WHERE username = $1`
)

// GetDevice loads a device with its reported and desired profiles.
func (db *DB) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	var (
		device            models.Device
		reported, desired []byte
	)

	err := db.executor.QueryRow(ctx, getDeviceSQL, id).Scan(
		&device.ID,
		&device.Name,
		&device.Description,
		&device.Secret,
		&device.Types,
		&device.Owner,
		&device.IsPublic,
		&reported,
		&desired,
		&device.ConfigVersion,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("%w device %s: %w", ErrFailedToQuery, id, err)
	}

	if device.ReportedConfig, err = decodeProfile(reported); err != nil {
		return nil, fmt.Errorf("%w reported_config of %s: %w", ErrFailedToScan, id, err)
	}

	if device.DesiredConfig, err = decodeProfile(desired); err != nil {
		return nil, fmt.Errorf("%w desired_config of %s: %w", ErrFailedToScan, id, err)
	}

	return &device, nil
}

// UpdateReportedConfig is a compare-and-swap on config_version.
func (db *DB) UpdateReportedConfig(
	ctx context.Context, deviceID string, reported *models.ConfigurationProfile, expectedVersion int64,
) (int64, error) {
	payload, err := json.Marshal(reported)
	if err != nil {
		return 0, fmt.Errorf("%w reported_config of %s: %w", ErrFailedToUpdate, deviceID, err)
	}

	var version int64

	err = db.withRetry(ctx, "update_reported_config", func(ctx context.Context) error {
		return db.executor.QueryRow(ctx, updateReportedConfigSQL,
			deviceID, payload, expectedVersion, db.now()).Scan(&version)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: device %s is not at version %d", ErrVersionConflict, deviceID, expectedVersion)
	}

	if err != nil {
		return 0, fmt.Errorf("%w reported_config of %s: %w", ErrFailedToUpdate, deviceID, err)
	}

	return version, nil
}

// GetOwner resolves a username through the owner directory.
func (db *DB) GetOwner(ctx context.Context, username string) (*models.OwnerContext, error) {
	var owner models.OwnerContext

	err := db.executor.QueryRow(ctx, getOwnerSQL, username).Scan(
		&owner.Username,
		&owner.DisplayName,
		&owner.Email,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrOwnerNotFound, username)
	}

	if err != nil {
		return nil, fmt.Errorf("%w owner %s: %w", ErrFailedToQuery, username, err)
	}

	return &owner, nil
}

func decodeProfile(raw []byte) (*models.ConfigurationProfile, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var profile models.ConfigurationProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, err
	}

	return &profile, nil
}
