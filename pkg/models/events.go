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

// CloudEvent represents a CloudEvents v1.0 compliant event.
type CloudEvent struct {
	SpecVersion     string     `json:"specversion"`
	ID              string     `json:"id"`
	Source          string     `json:"source"`
	Type            string     `json:"type"`
	DataContentType string     `json:"datacontenttype"`
	Subject         string     `json:"subject,omitempty"`
	Time            *time.Time `json:"time,omitempty"`
	Data            any        `json:"data,omitempty"`
}

// AlertFiredEventData is the payload published when a threshold rule fires.
type AlertFiredEventData struct {
	RuleID     string    `json:"rule_id"`
	SensorType string    `json:"sensor_type"`
	Condition  Condition `json:"condition"`
	Threshold  float64   `json:"threshold"`
	Value      string    `json:"value"`
	Unit       string    `json:"unit,omitempty"`
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name,omitempty"`
	Owner      string    `json:"owner,omitempty"`
	BatchID    string    `json:"batch_id,omitempty"`
	Message    string    `json:"message"`
	FiredAt    time.Time `json:"fired_at"`
	Recipients int       `json:"recipients"`
	Failed     []string  `json:"failed_recipients,omitempty"`
}
