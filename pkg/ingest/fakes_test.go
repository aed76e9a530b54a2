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
	"fmt"
	"sort"
	"sync"

	"github.com/carverauto/sensorhub/pkg/alerts"
	"github.com/carverauto/sensorhub/pkg/db"
	"github.com/carverauto/sensorhub/pkg/models"
	"github.com/google/uuid"
)

// memStore is an in-memory db.Service with the same append-only and
// compare-and-swap semantics as the Postgres store.
type memStore struct {
	mu sync.Mutex

	devices map[string]*models.Device
	owners  map[string]*models.OwnerContext
	types   []*models.SensorType
	rules   []*models.ThresholdRule
	batches []*models.TelemetryBatch
	firings map[string][]models.FiringRecord

	appendErr error
}

var _ db.Service = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		devices: make(map[string]*models.Device),
		owners:  make(map[string]*models.OwnerContext),
		firings: make(map[string][]models.FiringRecord),
	}
}

func (m *memStore) GetDevice(_ context.Context, id string) (*models.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", db.ErrDeviceNotFound, id)
	}

	c := *d
	c.ReportedConfig = d.ReportedConfig.Clone()
	c.DesiredConfig = d.DesiredConfig.Clone()

	return &c, nil
}

func (m *memStore) UpdateReportedConfig(
	_ context.Context, deviceID string, reported *models.ConfigurationProfile, expectedVersion int64,
) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[deviceID]
	if !ok || d.ConfigVersion != expectedVersion {
		return 0, fmt.Errorf("%w: %s", db.ErrVersionConflict, deviceID)
	}

	d.ReportedConfig = reported.Clone()
	d.ConfigVersion++

	return d.ConfigVersion, nil
}

func (m *memStore) GetOwner(_ context.Context, username string) (*models.OwnerContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.owners[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", db.ErrOwnerNotFound, username)
	}

	return o, nil
}

func (m *memStore) GetSensorType(_ context.Context, id string) (*models.SensorType, error) {
	for _, st := range m.types {
		if st.ID == id {
			return st, nil
		}
	}

	return nil, fmt.Errorf("%w: id %s", db.ErrSensorTypeNotFound, id)
}

func (m *memStore) FindSensorTypeByName(_ context.Context, name, owner string) (*models.SensorType, error) {
	var custom *models.SensorType

	for _, st := range m.types {
		if st.Name != name {
			continue
		}

		if st.Official {
			return st, nil
		}

		if st.Owner == owner && custom == nil {
			custom = st
		}
	}

	if custom != nil {
		return custom, nil
	}

	return nil, fmt.Errorf("%w: name %s", db.ErrSensorTypeNotFound, name)
}

func (m *memStore) AppendBatch(_ context.Context, batch *models.TelemetryBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.appendErr != nil {
		return m.appendErr
	}

	batch.ID = uuid.NewString()

	stored := *batch
	stored.Readings = append([]models.ResolvedReading(nil), batch.Readings...)
	m.batches = append(m.batches, &stored)

	return nil
}

// RulesForTypes hands out copies, the way rows are scanned fresh per query.
func (m *memStore) RulesForTypes(_ context.Context, typeNames []string) ([]*models.ThresholdRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.ThresholdRule

	for _, r := range m.rules {
		for _, name := range typeNames {
			if r.SensorType == name {
				c := *r
				c.FiringHistory = nil
				out = append(out, &c)

				break
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (m *memStore) AppendRuleFiring(_ context.Context, ruleID string, record models.FiringRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.rules {
		if r.ID == ruleID {
			m.firings[ruleID] = append(m.firings[ruleID], record)
			r.Version++

			return nil
		}
	}

	return fmt.Errorf("%w: %s", db.ErrRuleNotFound, ruleID)
}

func (*memStore) Ping(context.Context) error { return nil }

func (*memStore) Close() {}

func (m *memStore) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.batches)
}

func (m *memStore) firingsOf(ruleID string) []models.FiringRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]models.FiringRecord(nil), m.firings[ruleID]...)
}

// outbox records sends and fails the recipients listed in fail.
type outbox struct {
	mu   sync.Mutex
	sent []*alerts.Notification
	fail map[string]error
}

func (o *outbox) Send(_ context.Context, n *alerts.Notification) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err, ok := o.fail[n.To]; ok {
		return err
	}

	o.sent = append(o.sent, n)

	return nil
}

func (o *outbox) recipients() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]string, 0, len(o.sent))
	for _, n := range o.sent {
		out = append(out, n.To)
	}

	sort.Strings(out)

	return out
}
