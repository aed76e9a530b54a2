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

// IngestRequest is the body of a telemetry or heartbeat submission. A nil
// Readings slice means the field was absent.
type IngestRequest struct {
	Credential     string                `json:"credential"`
	DeviceID       string                `json:"device_id"`
	Timestamp      *time.Time            `json:"timestamp,omitempty"`
	Location       *Location             `json:"location,omitempty"`
	Readings       []Reading             `json:"readings,omitempty"`
	ReportedConfig *ConfigurationProfile `json:"reported_config,omitempty"`
}

// IsHeartbeat reports whether the request only carries a configuration report.
func (r *IngestRequest) IsHeartbeat() bool {
	return r.Readings == nil && r.ReportedConfig != nil
}

// ReconcileStatus is the outcome of comparing reported and desired settings.
type ReconcileStatus string

const (
	ReconcileSynced   ReconcileStatus = "synced"
	ReconcileDiverged ReconcileStatus = "diverged"
)

// ReconcileResult is returned to the device after a configuration report.
// DesiredConfig is only set when the status is diverged.
type ReconcileResult struct {
	Status        ReconcileStatus       `json:"status"`
	DesiredConfig *ConfigurationProfile `json:"desired_config,omitempty"`
}

// FiredAlert describes one rule that matched a reading.
type FiredAlert struct {
	RuleID     string    `json:"rule_id"`
	SensorType string    `json:"sensor_type"`
	Message    string    `json:"message"`
	FiredAt    time.Time `json:"fired_at"`
	Recipients int       `json:"recipients"`
	Failed     []string  `json:"failed_recipients,omitempty"`
	Audited    bool      `json:"audited"`
}

// AlertSummary aggregates the evaluation stage of a submission.
type AlertSummary struct {
	RulesEvaluated      int          `json:"rules_evaluated"`
	Fired               int          `json:"fired"`
	NotificationsSent   int          `json:"notifications_sent"`
	NotificationsFailed int          `json:"notifications_failed"`
	Firings             []FiredAlert `json:"firings,omitempty"`
}

// IngestResult is what the gateway returns for a successful call. Batch is
// nil on the heartbeat path.
type IngestResult struct {
	Batch    *TelemetryBatch  `json:"batch,omitempty"`
	Alerts   *AlertSummary    `json:"alerts,omitempty"`
	Config   *ReconcileResult `json:"config,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
}

// IngestResponse is the HTTP body of a successful telemetry submission.
type IngestResponse struct {
	Message  string           `json:"message"`
	BatchID  string           `json:"batch_id"`
	Data     *TelemetryBatch  `json:"data"`
	Alerts   *AlertSummary    `json:"alerts,omitempty"`
	Config   *ReconcileResult `json:"config,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
