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

// ConfigurationProfile is the set of settings a device runs with. The server
// keeps the last reported profile next to the desired one.
type ConfigurationProfile struct {
	EndpointURI        string `json:"endpoint_uri"`
	ProtocolVersion    string `json:"protocol_version"`
	DeviceID           string `json:"device_id"`
	Secret             string `json:"secret"`
	ReportingFrequency int64  `json:"reporting_frequency"`
	TelemetryEnabled   bool   `json:"telemetry_enabled"`
	AlwaysOn           bool   `json:"always_on"`
}

// Equal compares all seven fields.
func (p *ConfigurationProfile) Equal(other *ConfigurationProfile) bool {
	if p == nil || other == nil {
		return p == other
	}

	return len(p.Diff(other)) == 0
}

// Diff returns the json names of the fields that differ between p and other.
func (p *ConfigurationProfile) Diff(other *ConfigurationProfile) []string {
	var fields []string

	if p.EndpointURI != other.EndpointURI {
		fields = append(fields, "endpoint_uri")
	}

	if p.ProtocolVersion != other.ProtocolVersion {
		fields = append(fields, "protocol_version")
	}

	if p.DeviceID != other.DeviceID {
		fields = append(fields, "device_id")
	}

	if p.Secret != other.Secret {
		fields = append(fields, "secret")
	}

	if p.ReportingFrequency != other.ReportingFrequency {
		fields = append(fields, "reporting_frequency")
	}

	if p.TelemetryEnabled != other.TelemetryEnabled {
		fields = append(fields, "telemetry_enabled")
	}

	if p.AlwaysOn != other.AlwaysOn {
		fields = append(fields, "always_on")
	}

	return fields
}

// Clone returns a copy of the profile.
func (p *ConfigurationProfile) Clone() *ConfigurationProfile {
	if p == nil {
		return nil
	}

	c := *p

	return &c
}
