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

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/carverauto/sensorhub/pkg/models"
)

var errEmptyBody = errors.New("empty body")

// legacyEnvelope is the body older firmware sends:
// {"secretKey": "...", "data": {"sensorId": "...", "readings": [{"type": ...}]}}.
type legacyEnvelope struct {
	SecretKey string      `json:"secretKey"`
	Data      *legacyData `json:"data"`
}

type legacyData struct {
	SensorID  string           `json:"sensorId"`
	Timestamp *time.Time       `json:"timestamp,omitempty"`
	Location  *models.Location `json:"location,omitempty"`
	Readings  []legacyReading  `json:"readings"`
}

type legacyReading struct {
	Type      string              `json:"type"`
	Unit      string              `json:"unit"`
	Value     models.ReadingValue `json:"value"`
	Timestamp *time.Time          `json:"timestamp,omitempty"`
}

// decodeIngestRequest reads either the current or the legacy body shape.
func decodeIngestRequest(r io.Reader) (*models.IngestRequest, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if len(raw) == 0 {
		return nil, errEmptyBody
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}

	_, hasData := probe["data"]
	_, hasDeviceID := probe["device_id"]

	if hasData && !hasDeviceID {
		return decodeLegacy(raw)
	}

	var req models.IngestRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}

	return &req, nil
}

func decodeLegacy(raw []byte) (*models.IngestRequest, error) {
	var env legacyEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}

	if env.Data == nil {
		return nil, fmt.Errorf("legacy body: %w", errEmptyBody)
	}

	req := &models.IngestRequest{
		Credential: env.SecretKey,
		DeviceID:   env.Data.SensorID,
		Timestamp:  env.Data.Timestamp,
		Location:   env.Data.Location,
	}

	if env.Data.Readings != nil {
		req.Readings = make([]models.Reading, 0, len(env.Data.Readings))
	}

	for _, lr := range env.Data.Readings {
		req.Readings = append(req.Readings, models.Reading{
			TypeName:  lr.Type,
			Unit:      lr.Unit,
			Value:     lr.Value,
			Timestamp: lr.Timestamp,
		})
	}

	return req, nil
}
