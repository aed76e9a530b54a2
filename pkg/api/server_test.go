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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/carverauto/sensorhub/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngester struct {
	got    *models.IngestRequest
	result *models.IngestResult
	err    error
}

func (f *fakeIngester) Ingest(_ context.Context, req *models.IngestRequest) (*models.IngestResult, error) {
	f.got = req
	return f.result, f.err
}

type fakeHealth struct{ err error }

func (f fakeHealth) Ping(context.Context) error { return f.err }

func post(t *testing.T, s *APIServer, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/sensors/data", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	for k, v := range header {
		req.Header[k] = v
	}

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	return rr
}

func TestSensorDataTelemetryResponse(t *testing.T) {
	ing := &fakeIngester{result: &models.IngestResult{
		Batch:  &models.TelemetryBatch{ID: "b-1", DeviceID: "dev-1"},
		Alerts: &models.AlertSummary{RulesEvaluated: 1, Fired: 1},
	}}
	s := NewAPIServer(models.CORSConfig{}, WithIngester(ing))

	rr := post(t, s, `{"credential":"k","device_id":"dev-1","readings":[{"type_name":"temperature","unit":"C","value":9.5}]}`, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp models.IngestResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, msgDataAdded, resp.Message)
	assert.Equal(t, "b-1", resp.BatchID)
	assert.Equal(t, 1, resp.Alerts.Fired)

	require.NotNil(t, ing.got)
	assert.Equal(t, "k", ing.got.Credential)
	assert.Equal(t, models.ReadingValue("9.5"), ing.got.Readings[0].Value)
}

func TestSensorDataHeartbeatResponse(t *testing.T) {
	desired := &models.ConfigurationProfile{DeviceID: "dev-1", ReportingFrequency: 30}
	ing := &fakeIngester{result: &models.IngestResult{
		Config: &models.ReconcileResult{Status: models.ReconcileDiverged, DesiredConfig: desired},
	}}
	s := NewAPIServer(models.CORSConfig{}, WithIngester(ing))

	rr := post(t, s, `{"device_id":"dev-1","reported_config":{"device_id":"dev-1","reporting_frequency":60}}`,
		http.Header{DeviceSecretHeader: {"from-header"}})
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp models.ReconcileResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, models.ReconcileDiverged, resp.Status)
	assert.Equal(t, desired, resp.DesiredConfig)

	assert.Equal(t, "from-header", ing.got.Credential)
	assert.True(t, ing.got.IsHeartbeat())
}

func TestSensorDataErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			name:   "authentication",
			err:    &models.AuthenticationError{DeviceID: "dev-1"},
			status: http.StatusUnauthorized,
			body:   "invalid credential",
		},
		{
			name:   "validation",
			err:    models.NewValidationError(models.ReasonUnknownType, 2, "name:radiation", "sensor type is not registered"),
			status: http.StatusBadRequest,
			body:   "unknown_type: reading 2 (name:radiation)",
		},
		{
			name:   "persistence",
			err:    &models.PersistenceError{Op: "append telemetry batch", Err: errors.New("disk full")},
			status: http.StatusInternalServerError,
			body:   "failed to store sensor data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewAPIServer(models.CORSConfig{}, WithIngester(&fakeIngester{err: tt.err}))

			rr := post(t, s, `{"credential":"k","device_id":"dev-1","readings":[]}`, nil)
			assert.Equal(t, tt.status, rr.Code)

			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Contains(t, resp.Error, tt.body)
			assert.NotContains(t, resp.Error, "disk full")
		})
	}
}

func TestSensorDataMalformedJSON(t *testing.T) {
	ing := &fakeIngester{}
	s := NewAPIServer(models.CORSConfig{}, WithIngester(ing))

	for _, body := range []string{"", "{", `{"readings":"nope"}`, `[1,2]`} {
		rr := post(t, s, body, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}

	assert.Nil(t, ing.got)
}

func TestSensorDataBodyLimit(t *testing.T) {
	s := NewAPIServer(models.CORSConfig{}, WithIngester(&fakeIngester{}), WithMaxBodyBytes(16))

	rr := post(t, s, `{"credential":"`+strings.Repeat("x", 64)+`"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSensorDataLegacyEnvelope(t *testing.T) {
	ing := &fakeIngester{result: &models.IngestResult{Batch: &models.TelemetryBatch{ID: "b-2"}}}
	s := NewAPIServer(models.CORSConfig{}, WithIngester(ing))

	body := `{"secretKey":"abc","data":{"sensorId":"dev-9","location":{"x":"1","y":"2"},` +
		`"readings":[{"type":"humidity","unit":"%","value":"40"}]}}`

	rr := post(t, s, body, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	require.NotNil(t, ing.got)
	assert.Equal(t, "abc", ing.got.Credential)
	assert.Equal(t, "dev-9", ing.got.DeviceID)
	assert.Equal(t, "1", ing.got.Location.X)
	require.Len(t, ing.got.Readings, 1)
	assert.Equal(t, "humidity", ing.got.Readings[0].TypeName)
}

func TestSensorDataWithoutIngester(t *testing.T) {
	s := NewAPIServer(models.CORSConfig{})

	rr := post(t, s, `{}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHealth(t *testing.T) {
	for name, tc := range map[string]struct {
		err    error
		status int
	}{
		"ok":         {status: http.StatusOK},
		"db is down": {err: errors.New("connection refused"), status: http.StatusServiceUnavailable},
	} {
		t.Run(name, func(t *testing.T) {
			s := NewAPIServer(models.CORSConfig{}, WithHealthChecker(fakeHealth{err: tc.err}))

			req := httptest.NewRequest(http.MethodGet, "/api/health", http.NoBody)
			rr := httptest.NewRecorder()
			s.Handler().ServeHTTP(rr, req)

			assert.Equal(t, tc.status, rr.Code)
		})
	}
}

func TestWrongMethod(t *testing.T) {
	s := NewAPIServer(models.CORSConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/sensors/data", bytes.NewReader(nil))
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHTTPServerTimeouts(t *testing.T) {
	srv := NewAPIServer(models.CORSConfig{}).HTTPServer(":0")

	assert.Equal(t, ":0", srv.Addr)
	assert.Equal(t, defaultReadTimeout, srv.ReadTimeout)
	assert.Equal(t, defaultWriteTimeout, srv.WriteTimeout)
}
