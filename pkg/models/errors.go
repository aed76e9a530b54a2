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

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication is returned when a credential does not match the
	// claimed device.
	ErrAuthentication = errors.New("authentication failed")
	// ErrValidation is returned when a payload is rejected before anything
	// is persisted.
	ErrValidation = errors.New("validation failed")
	// ErrPersistence is returned when the telemetry write fails.
	ErrPersistence = errors.New("persistence failed")
	// ErrEvaluation marks a rule evaluation fault after telemetry was committed.
	ErrEvaluation = errors.New("rule evaluation failed")
	// ErrDelivery marks a failed notification send to one recipient.
	ErrDelivery = errors.New("notification delivery failed")

	errInvalidReadingValue = errors.New("invalid reading value")
)

// ValidationReason classifies a ValidationError.
type ValidationReason string

const (
	ReasonUnknownType      ValidationReason = "unknown_type"
	ReasonMissingType      ValidationReason = "missing_type"
	ReasonMalformedReading ValidationReason = "malformed_reading"
	ReasonEmptyPayload     ValidationReason = "empty_payload"
)

// NoReading is the Index of a ValidationError that is not tied to a reading.
const NoReading = -1

// ValidationError rejects a whole submission.
type ValidationError struct {
	Reason ValidationReason
	Index  int
	Ref    string
	Detail string
}

// NewValidationError builds a ValidationError for the reading at index.
func NewValidationError(reason ValidationReason, index int, ref, detail string) *ValidationError {
	return &ValidationError{Reason: reason, Index: index, Ref: ref, Detail: detail}
}

func (e *ValidationError) Error() string {
	msg := string(e.Reason)
	if e.Index != NoReading {
		msg = fmt.Sprintf("%s: reading %d", msg, e.Index)
	}

	if e.Ref != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Ref)
	}

	if e.Detail != "" {
		msg = msg + ": " + e.Detail
	}

	return msg
}

func (*ValidationError) Unwrap() error {
	return ErrValidation
}

// AuthenticationError rejects a submission whose credential does not match.
type AuthenticationError struct {
	DeviceID string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("invalid credential for device %q", e.DeviceID)
}

func (*AuthenticationError) Unwrap() error {
	return ErrAuthentication
}

// PersistenceError wraps a store failure that aborts the request.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// EvaluationError records a fault while evaluating rules on committed data.
type EvaluationError struct {
	RuleID     string
	SensorType string
	Err        error
}

func (e *EvaluationError) Error() string {
	if e.RuleID == "" {
		return fmt.Sprintf("evaluate rules for %q: %v", e.SensorType, e.Err)
	}

	return fmt.Sprintf("evaluate rule %s (%s): %v", e.RuleID, e.SensorType, e.Err)
}

func (e *EvaluationError) Unwrap() []error {
	return []error{ErrEvaluation, e.Err}
}

// DeliveryError records a failed send to a single recipient.
type DeliveryError struct {
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() []error {
	return []error{ErrDelivery, e.Err}
}
