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

import "errors"

var (

	// Lookups.

	ErrDeviceNotFound     = errors.New("device not found")
	ErrSensorTypeNotFound = errors.New("sensor type not found")
	ErrOwnerNotFound      = errors.New("owner not found")
	ErrRuleNotFound       = errors.New("alert rule not found")

	// Writes.

	ErrVersionConflict = errors.New("config version conflict")
	ErrBatchNil        = errors.New("telemetry batch is nil")
	ErrBatchEmpty      = errors.New("telemetry batch has no readings")

	// Operation errors.

	ErrFailedToQuery  = errors.New("failed to query")
	ErrFailedToScan   = errors.New("failed to scan")
	ErrFailedToInsert = errors.New("failed to insert")
	ErrFailedToUpdate = errors.New("failed to update")

	// Connection setup.

	ErrCNPGConfigMissing = errors.New("cnpg: database configuration is required")
	ErrCNPGTLSDisabled   = errors.New("cnpg tls: sslmode=disable cannot be combined with tls settings")
	ErrCNPGTLSIncomplete = errors.New("cnpg tls: cert_file, key_file, and ca_file are required")
)
