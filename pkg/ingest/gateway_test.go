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

package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/carverauto/sensorhub/pkg/alerts"
	"github.com/carverauto/sensorhub/pkg/db"
	"github.com/carverauto/sensorhub/pkg/models"
	"github.com/carverauto/sensorhub/pkg/reconcile"
	"github.com/carverauto/sensorhub/pkg/sensortypes"
	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	deviceID = "dev-1"
	secret   = "f3a9c2e1"
)

type fixture struct {
	store  *memStore
	outbox *outbox
	svc    *Service
}

func desiredProfile() *models.ConfigurationProfile {
	return &models.ConfigurationProfile{
		EndpointURI:        "https://hub.example.com/api/sensors/data",
		ProtocolVersion:    "1.0",
		DeviceID:           deviceID,
		Secret:             secret,
		ReportingFrequency: 60,
		TelemetryEnabled:   true,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()
	store.devices[deviceID] = &models.Device{
		ID:            deviceID,
		Name:          "Greenhouse",
		Secret:        secret,
		Types:         []string{"temperature", "humidity"},
		Owner:         "alice",
		DesiredConfig: desiredProfile(),
		ConfigVersion: 1,
	}
	store.owners["alice"] = &models.OwnerContext{Username: "alice", DisplayName: "Alice"}
	store.types = []*models.SensorType{
		{ID: "t-temp", Name: "temperature", Unit: "C", Official: true},
		{ID: "t-hum", Name: "humidity", Unit: "%", Official: true},
		{ID: "t-soil", Name: "soil", Unit: "%", Owner: "alice"},
	}
	store.rules = []*models.ThresholdRule{{
		ID:         "rule-cold",
		SensorType: "temperature",
		Condition:  models.ConditionUnder,
		Threshold:  10,
		Action:     models.ActionEmail,
		Emails:     []string{"a@example.com", "b@example.com", "c@example.com"},
	}}

	box := &outbox{fail: map[string]error{}}

	engine := alerts.NewEngine(
		alerts.NewMatcher(store),
		alerts.NewDispatcher(box, nil, alerts.WithSendTimeout(time.Second)),
		alerts.NewAuditor(store, nil),
		nil,
	)

	reconciler := reconcile.New(store, nil,
		reconcile.WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }))

	svc := NewService(store, sensortypes.NewResolver(store, nil), engine, reconciler, nil)

	return &fixture{store: store, outbox: box, svc: svc}
}

func telemetryRequest(readings ...models.Reading) *models.IngestRequest {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	return &models.IngestRequest{
		Credential: secret,
		DeviceID:   deviceID,
		Timestamp:  &ts,
		Location:   &models.Location{X: "45.1", Y: "7.6"},
		Readings:   readings,
	}
}

func temp(value string) models.Reading {
	return models.Reading{TypeName: "temperature", Unit: "C", Value: models.ReadingValue(value)}
}

func TestIngestRejectsMismatchedCredential(t *testing.T) {
	f := newFixture(t)

	for name, req := range map[string]*models.IngestRequest{
		"wrong secret":   {Credential: "nope", DeviceID: deviceID, Readings: []models.Reading{temp("5")}},
		"unknown device": {Credential: secret, DeviceID: "dev-404", Readings: []models.Reading{temp("5")}},
		"missing secret": {DeviceID: deviceID, Readings: []models.Reading{temp("5")}},
		"missing device": {Credential: secret, Readings: []models.Reading{temp("5")}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Ingest(context.Background(), req)

			var authErr *models.AuthenticationError
			require.ErrorAs(t, err, &authErr)
			require.ErrorIs(t, err, models.ErrAuthentication)
		})
	}

	assert.Zero(t, f.store.batchCount())
	assert.Empty(t, f.outbox.recipients())
}

func TestIngestIdenticalBatchTwiceCreatesTwoRecords(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Ingest(context.Background(), telemetryRequest(temp("21")))
	require.NoError(t, err)

	second, err := f.svc.Ingest(context.Background(), telemetryRequest(temp("21")))
	require.NoError(t, err)

	assert.Equal(t, 2, f.store.batchCount())
	assert.NotEqual(t, first.Batch.ID, second.Batch.ID)
	assert.Equal(t, first.Batch.Readings, second.Batch.Readings)
}

func TestIngestUnderThresholdFiresOnce(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Ingest(context.Background(), telemetryRequest(temp("9.5")))
	require.NoError(t, err)

	require.NotNil(t, res.Alerts)
	assert.Equal(t, 1, res.Alerts.Fired)
	assert.Equal(t, 3, res.Alerts.NotificationsSent)

	firings := f.store.firingsOf("rule-cold")
	require.Len(t, firings, 1)
	assert.Equal(t, "temperature is under 10: 9.5", firings[0].Message)
	assert.Equal(t, deviceID, firings[0].DeviceID)

	assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com"}, f.outbox.recipients())

	for _, n := range f.outbox.sent {
		assert.Equal(t, "Alert: temperature is under 10", n.Subject)
		assert.Contains(t, n.Body, "Owner: Alice")
	}
}

func TestIngestAtThresholdDoesNotFire(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Ingest(context.Background(), telemetryRequest(temp("10")))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Alerts.RulesEvaluated)
	assert.Zero(t, res.Alerts.Fired)
	assert.Empty(t, f.store.firingsOf("rule-cold"))
	assert.Empty(t, f.outbox.recipients())
	assert.Equal(t, 1, f.store.batchCount())
}

func TestIngestHeartbeat(t *testing.T) {
	t.Run("synced", func(t *testing.T) {
		f := newFixture(t)

		res, err := f.svc.Ingest(context.Background(), &models.IngestRequest{
			Credential: secret, DeviceID: deviceID, ReportedConfig: desiredProfile(),
		})
		require.NoError(t, err)

		assert.Nil(t, res.Batch)
		require.NotNil(t, res.Config)
		assert.Equal(t, models.ReconcileSynced, res.Config.Status)
		assert.Nil(t, res.Config.DesiredConfig)
		assert.Zero(t, f.store.batchCount())
		assert.Equal(t, int64(2), f.store.devices[deviceID].ConfigVersion)
	})

	t.Run("single field differs", func(t *testing.T) {
		f := newFixture(t)

		reported := desiredProfile()
		reported.ReportingFrequency = 5

		res, err := f.svc.Ingest(context.Background(), &models.IngestRequest{
			Credential: secret, DeviceID: deviceID, ReportedConfig: reported,
		})
		require.NoError(t, err)

		assert.Equal(t, models.ReconcileDiverged, res.Config.Status)
		assert.Equal(t, desiredProfile(), res.Config.DesiredConfig)
		assert.Equal(t, reported, f.store.devices[deviceID].ReportedConfig)
	})
}

func TestIngestEmptyPayload(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Ingest(context.Background(), &models.IngestRequest{Credential: secret, DeviceID: deviceID})

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, models.ReasonEmptyPayload, verr.Reason)

	req := telemetryRequest()
	req.Readings = []models.Reading{}

	_, err = f.svc.Ingest(context.Background(), req)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, models.ReasonMalformedReading, verr.Reason)

	assert.Zero(t, f.store.batchCount())
}

func TestIngestUnresolvableReadingPersistsNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Ingest(context.Background(), telemetryRequest(
		temp("5"),
		models.Reading{TypeName: "radiation", Unit: "Sv", Value: "0.1"},
		models.Reading{TypeID: "t-hum", Unit: "%", Value: "40"},
	))

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, models.ReasonUnknownType, verr.Reason)
	assert.Equal(t, 1, verr.Index)
	assert.Contains(t, err.Error(), "radiation")

	assert.Zero(t, f.store.batchCount())
	assert.Empty(t, f.store.firingsOf("rule-cold"))
	assert.Empty(t, f.outbox.recipients())
}

func TestIngestSecondRecipientFails(t *testing.T) {
	f := newFixture(t)
	f.outbox.fail["b@example.com"] = errors.New("451 try again later")

	res, err := f.svc.Ingest(context.Background(), telemetryRequest(temp("3")))
	require.NoError(t, err)

	assert.Equal(t, []string{"a@example.com", "c@example.com"}, f.outbox.recipients())
	assert.Equal(t, 2, res.Alerts.NotificationsSent)
	assert.Equal(t, 1, res.Alerts.NotificationsFailed)
	assert.Equal(t, []string{"b@example.com"}, res.Alerts.Firings[0].Failed)
	assert.True(t, res.Alerts.Firings[0].Audited)
	assert.Len(t, f.store.firingsOf("rule-cold"), 1)
}

func TestIngestTelemetryWithReportedConfig(t *testing.T) {
	f := newFixture(t)

	reported := desiredProfile()
	reported.AlwaysOn = true

	req := telemetryRequest(models.Reading{TypeName: "soil", Unit: "%", Value: "33"})
	req.ReportedConfig = reported

	res, err := f.svc.Ingest(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, res.Batch)
	assert.Equal(t, "t-soil", res.Batch.Readings[0].TypeID)
	require.NotNil(t, res.Config)
	assert.Equal(t, models.ReconcileDiverged, res.Config.Status)
	assert.False(t, res.Config.DesiredConfig.AlwaysOn)
}

func TestIngestPersistenceFailureSkipsEvaluation(t *testing.T) {
	f := newFixture(t)
	f.store.appendErr = errors.New("disk full")

	_, err := f.svc.Ingest(context.Background(), telemetryRequest(temp("1")))
	require.ErrorIs(t, err, models.ErrPersistence)

	assert.Empty(t, f.outbox.recipients())
	assert.Empty(t, f.store.firingsOf("rule-cold"))
}

func TestIngestOwnerLookupFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	delete(f.store.owners, "alice")

	res, err := f.svc.Ingest(context.Background(), telemetryRequest(temp("1")))
	require.NoError(t, err)

	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "owner lookup")
	assert.Equal(t, 1, res.Alerts.Fired)
}

func TestIngestBatchUsesReadingTimestamps(t *testing.T) {
	f := newFixture(t)

	own := time.Date(2025, 3, 1, 11, 59, 0, 0, time.UTC)
	r := temp("20")
	r.Timestamp = &own

	res, err := f.svc.Ingest(context.Background(), telemetryRequest(r, temp("21")))
	require.NoError(t, err)

	assert.Equal(t, own, res.Batch.Readings[0].Timestamp)
	assert.Equal(t, res.Batch.Timestamp, res.Batch.Readings[1].Timestamp)
}

func TestIngestConcurrentHeartbeatsConverge(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup

	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := f.svc.Ingest(context.Background(), &models.IngestRequest{
				Credential: secret, DeviceID: deviceID, ReportedConfig: desiredProfile(),
			})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Equal(t, int64(11), f.store.devices[deviceID].ConfigVersion)
	assert.Zero(t, f.svc.locks.size())
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, "ok", statusOf(nil))
	assert.Equal(t, "unauthorized", statusOf(&models.AuthenticationError{}))
	assert.Equal(t, "invalid", statusOf(models.NewValidationError(models.ReasonMissingType, 0, "", "")))
	assert.Equal(t, "error", statusOf(&models.PersistenceError{Op: "x", Err: db.ErrFailedToInsert}))
}
