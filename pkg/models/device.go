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

package models

import "time"

// Device is a registered telemetry source. Devices are created and removed by
// the management API; the ingestion path only reads them and updates the
// reported configuration.
type Device struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	Description    string                `json:"description,omitempty"`
	Secret         string                `json:"-"`
	Types          []string              `json:"types"`
	Owner          string                `json:"owner,omitempty"`
	IsPublic       bool                  `json:"is_public"`
	ReportedConfig *ConfigurationProfile `json:"reported_config,omitempty"`
	DesiredConfig  *ConfigurationProfile `json:"desired_config,omitempty"`
	ConfigVersion  int64                 `json:"config_version"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// DisplayName returns the device name, falling back to its id.
func (d *Device) DisplayName() string {
	if d == nil {
		return ""
	}

	if d.Name != "" {
		return d.Name
	}

	return d.ID
}

// OwnerContext is the resolved owner of a device as known to the account
// directory.
type OwnerContext struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

// Name returns the best human readable name for the owner.
func (o *OwnerContext) Name() string {
	if o == nil {
		return ""
	}

	if o.DisplayName != "" {
		return o.DisplayName
	}

	return o.Username
}

// SensorType is an entry of the type catalog. Official types are global,
// custom types belong to the user that registered them.
type SensorType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Unit        string `json:"unit"`
	Official    bool   `json:"official"`
	Owner       string `json:"owner,omitempty"`
}
