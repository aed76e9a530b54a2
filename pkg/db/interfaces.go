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

//go:generate mockgen -destination=mock_db.go -package=db github.com/carverauto/sensorhub/pkg/db Service

package db

import (
	"context"

	"github.com/carverauto/sensorhub/pkg/models"
)

// DeviceStore reads registered devices and records their reported settings.
type DeviceStore interface {
	// GetDevice returns ErrDeviceNotFound for an unknown id.
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	// UpdateReportedConfig stores reported when the device is still at
	// expectedVersion and returns the new version. A concurrent writer
	// yields ErrVersionConflict.
	UpdateReportedConfig(ctx context.Context, deviceID string, reported *models.ConfigurationProfile, expectedVersion int64) (int64, error)
}

// OwnerDirectory resolves device owners.
type OwnerDirectory interface {
	GetOwner(ctx context.Context, username string) (*models.OwnerContext, error)
}

// TypeCatalog looks up official and custom sensor types.
type TypeCatalog interface {
	GetSensorType(ctx context.Context, id string) (*models.SensorType, error)
	// FindSensorTypeByName prefers an official type and falls back to a
	// custom type registered by owner.
	FindSensorTypeByName(ctx context.Context, name, owner string) (*models.SensorType, error)
}

// TelemetryStore persists submissions. Batches are never updated.
type TelemetryStore interface {
	// AppendBatch assigns a fresh id to batch and writes it with all its
	// readings atomically.
	AppendBatch(ctx context.Context, batch *models.TelemetryBatch) error
}

// RuleStore serves threshold rules and their firing history.
type RuleStore interface {
	RulesForTypes(ctx context.Context, typeNames []string) ([]*models.ThresholdRule, error)
	AppendRuleFiring(ctx context.Context, ruleID string, record models.FiringRecord) error
}

// Service is the storage surface of the ingestion path.
type Service interface {
	DeviceStore
	OwnerDirectory
	TypeCatalog
	TelemetryStore
	RuleStore

	Ping(ctx context.Context) error
	Close()
}
