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
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ReadingValue is the raw measurement as reported by the device. It is kept
// as text; devices may send either a JSON string or a JSON number.
type ReadingValue string

func (v *ReadingValue) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = ""
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}

		*v = ReadingValue(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("%w: reading value must be a string or a number", errInvalidReadingValue)
	}

	*v = ReadingValue(n.String())

	return nil
}

// Reading is a single measurement of a telemetry submission. The type is
// referenced either by catalog id or by name.
type Reading struct {
	TypeID    string       `json:"type_id,omitempty"`
	TypeName  string       `json:"type_name,omitempty"`
	Unit      string       `json:"unit"`
	Value     ReadingValue `json:"value"`
	Timestamp *time.Time   `json:"timestamp,omitempty"`
}

// Ref describes how the reading refers to its type, for error messages.
func (r *Reading) Ref() string {
	switch {
	case strings.TrimSpace(r.TypeID) != "":
		return "id:" + strings.TrimSpace(r.TypeID)
	case strings.TrimSpace(r.TypeName) != "":
		return "name:" + strings.TrimSpace(r.TypeName)
	default:
		return "<none>"
	}
}

// ResolvedReading is a reading whose type reference was validated against
// the catalog.
type ResolvedReading struct {
	TypeID    string    `json:"type_id"`
	TypeName  string    `json:"type"`
	Unit      string    `json:"unit"`
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Location is the optional position attached to a submission.
type Location struct {
	X string `json:"x,omitempty"`
	Y string `json:"y,omitempty"`
}

// TelemetryBatch is one persisted submission. Batches are append-only.
type TelemetryBatch struct {
	ID         string            `json:"id"`
	DeviceID   string            `json:"device_id"`
	Timestamp  time.Time         `json:"timestamp"`
	Location   *Location         `json:"location,omitempty"`
	Readings   []ResolvedReading `json:"readings"`
	ReceivedAt time.Time         `json:"received_at"`
}

// TypeNames returns the distinct type names of the batch in first-seen order.
func (b *TelemetryBatch) TypeNames() []string {
	seen := make(map[string]struct{}, len(b.Readings))
	names := make([]string, 0, len(b.Readings))

	for i := range b.Readings {
		name := b.Readings[i].TypeName
		if _, ok := seen[name]; ok {
			continue
		}

		seen[name] = struct{}{}
		names = append(names, name)
	}

	return names
}
