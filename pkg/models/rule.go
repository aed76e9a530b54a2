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

// Condition is the comparison a threshold rule applies.
type Condition string

const (
	ConditionUnder Condition = "under"
	ConditionAbove Condition = "above"
)

// Valid reports whether the condition is one the evaluator understands.
func (c Condition) Valid() bool {
	return c == ConditionUnder || c == ConditionAbove
}

// AlertAction is what happens when a rule fires. Only email is supported.
type AlertAction string

const ActionEmail AlertAction = "email"

// FiringRecord is one entry of a rule's firing history.
type FiringRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	DeviceID  string    `json:"device_id,omitempty"`
}

// ThresholdRule is an owner defined alert on a sensor type. Rules match any
// device reporting a reading of SensorType.
type ThresholdRule struct {
	ID            string         `json:"id"`
	SensorType    string         `json:"sensor_type"`
	Condition     Condition      `json:"condition"`
	Threshold     float64        `json:"threshold"`
	Action        AlertAction    `json:"action"`
	Emails        []string       `json:"emails"`
	Username      string         `json:"username,omitempty"`
	Version       int64          `json:"version"`
	FiringHistory []FiringRecord `json:"firing_history,omitempty"`
}
