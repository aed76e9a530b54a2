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

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/carverauto/sensorhub/pkg/db"
	"github.com/carverauto/sensorhub/pkg/models"
	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func profile() *models.ConfigurationProfile {
	return &models.ConfigurationProfile{
		EndpointURI:        "https://hub.example.com/api/sensors/data",
		ProtocolVersion:    "1.2",
		DeviceID:           "dev-1",
		Secret:             "s3cret",
		ReportingFrequency: 60,
		TelemetryEnabled:   true,
		AlwaysOn:           false,
	}
}

func noWait() Option {
	return WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} })
}

func conflict() error {
	return fmt.Errorf("%w: device dev-1", db.ErrVersionConflict)
}

func TestCompare(t *testing.T) {
	desired := profile()

	assert.Equal(t, models.ReconcileSynced, Compare(profile(), desired).Status)
	assert.Equal(t, models.ReconcileSynced, Compare(profile(), nil).Status)

	mutations := map[string]func(p *models.ConfigurationProfile){
		"endpoint_uri":        func(p *models.ConfigurationProfile) { p.EndpointURI = "https://other" },
		"protocol_version":    func(p *models.ConfigurationProfile) { p.ProtocolVersion = "2.0" },
		"device_id":           func(p *models.ConfigurationProfile) { p.DeviceID = "dev-2" },
		"secret":              func(p *models.ConfigurationProfile) { p.Secret = "rotated" },
		"reporting_frequency": func(p *models.ConfigurationProfile) { p.ReportingFrequency = 30 },
		"telemetry_enabled":   func(p *models.ConfigurationProfile) { p.TelemetryEnabled = false },
		"always_on":           func(p *models.ConfigurationProfile) { p.AlwaysOn = true },
	}

	for field, mutate := range mutations {
		t.Run(field, func(t *testing.T) {
			reported := profile()
			mutate(reported)

			result := Compare(reported, desired)
			assert.Equal(t, models.ReconcileDiverged, result.Status)
			assert.Equal(t, desired, result.DesiredConfig)
			assert.NotSame(t, desired, result.DesiredConfig)
			assert.Equal(t, []string{field}, reported.Diff(desired))
		})
	}
}

func TestReconcileSynced(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockService(ctrl)

	device := &models.Device{ID: "dev-1", DesiredConfig: profile(), ConfigVersion: 4}
	reported := profile()

	store.EXPECT().UpdateReportedConfig(gomock.Any(), "dev-1", reported, int64(4)).Return(int64(5), nil)

	result, err := New(store, nil, noWait()).Reconcile(context.Background(), device, reported)
	require.NoError(t, err)
	assert.Equal(t, models.ReconcileSynced, result.Status)
	assert.Nil(t, result.DesiredConfig)
	assert.Equal(t, int64(5), device.ConfigVersion)
	assert.Equal(t, reported, device.ReportedConfig)
}

func TestReconcileDivergedReturnsFullDesiredProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockService(ctrl)

	desired := profile()
	desired.ReportingFrequency = 300

	device := &models.Device{ID: "dev-1", DesiredConfig: desired, ConfigVersion: 1}

	store.EXPECT().UpdateReportedConfig(gomock.Any(), "dev-1", gomock.Any(), int64(1)).Return(int64(2), nil)

	result, err := New(store, nil, noWait()).Reconcile(context.Background(), device, profile())
	require.NoError(t, err)
	assert.Equal(t, models.ReconcileDiverged, result.Status)
	assert.Equal(t, desired, result.DesiredConfig)
}

func TestReconcileRetriesVersionConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockService(ctrl)

	stale := &models.Device{ID: "dev-1", ConfigVersion: 1}

	desired := profile()
	desired.AlwaysOn = true
	fresh := &models.Device{ID: "dev-1", ConfigVersion: 2, DesiredConfig: desired}

	gomock.InOrder(
		store.EXPECT().UpdateReportedConfig(gomock.Any(), "dev-1", gomock.Any(), int64(1)).Return(int64(0), conflict()),
		store.EXPECT().GetDevice(gomock.Any(), "dev-1").Return(fresh, nil),
		store.EXPECT().UpdateReportedConfig(gomock.Any(), "dev-1", gomock.Any(), int64(2)).Return(int64(3), nil),
	)

	result, err := New(store, nil, noWait()).Reconcile(context.Background(), stale, profile())
	require.NoError(t, err)

	assert.Equal(t, models.ReconcileDiverged, result.Status)
	assert.True(t, result.DesiredConfig.AlwaysOn)
	assert.Equal(t, int64(3), stale.ConfigVersion)
	assert.Equal(t, desired, stale.DesiredConfig)
}

func TestReconcileGivesUpAfterMaxElapsed(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockService(ctrl)

	device := &models.Device{ID: "dev-1", ConfigVersion: 1}

	store.EXPECT().UpdateReportedConfig(gomock.Any(), "dev-1", gomock.Any(), gomock.Any()).
		Return(int64(0), conflict()).MinTimes(1)
	store.EXPECT().GetDevice(gomock.Any(), "dev-1").Return(device, nil).AnyTimes()

	r := New(store, nil,
		WithMaxElapsed(30*time.Millisecond),
		WithBackOff(func() backoff.BackOff { return backoff.NewConstantBackOff(5 * time.Millisecond) }))

	_, err := r.Reconcile(context.Background(), device, profile())
	require.ErrorIs(t, err, models.ErrPersistence)
	require.ErrorIs(t, err, db.ErrVersionConflict)
}

func TestReconcilePermanentFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockService(ctrl)

	device := &models.Device{ID: "dev-1", ConfigVersion: 1, DesiredConfig: profile()}
	boom := errors.New("connection reset")

	store.EXPECT().UpdateReportedConfig(gomock.Any(), "dev-1", gomock.Any(), int64(1)).Return(int64(0), boom)

	_, err := New(store, nil, noWait()).Reconcile(context.Background(), device, profile())
	require.ErrorIs(t, err, models.ErrPersistence)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), device.ConfigVersion)
}

func TestReconcileRequiresReport(t *testing.T) {
	ctrl := gomock.NewController(t)

	_, err := New(db.NewMockService(ctrl), nil).Reconcile(context.Background(), &models.Device{ID: "dev-1"}, nil)
	require.ErrorIs(t, err, models.ErrValidation)
}
