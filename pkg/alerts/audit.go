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

package alerts

import (
	"context"
	"sync"
	"time"

	"github.com/carverauto/sensorhub/pkg/db"
	"github.com/carverauto/sensorhub/pkg/logger"
	"github.com/carverauto/sensorhub/pkg/models"
)

// Auditor appends firing records to a rule's history.
type Auditor struct {
	store  db.RuleStore
	logger logger.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewAuditor returns an Auditor persisting through store.
func NewAuditor(store db.RuleStore, log logger.Logger) *Auditor {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Auditor{
		store:  store,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Record persists a firing and appends it to rule.FiringHistory. A zero ts
// means now. The in-memory history only grows once the store accepted the
// entry.
func (a *Auditor) Record(
	ctx context.Context, rule *models.ThresholdRule, message, deviceID string, ts time.Time,
) (models.FiringRecord, error) {
	if ts.IsZero() {
		ts = a.now()
	}

	record := models.FiringRecord{Timestamp: ts, Message: message, DeviceID: deviceID}

	if err := a.store.AppendRuleFiring(ctx, rule.ID, record); err != nil {
		a.logger.Error().
			Err(err).
			Str("rule_id", rule.ID).
			Str("device_id", deviceID).
			Msg("Failed to record rule firing")

		return record, &models.EvaluationError{RuleID: rule.ID, SensorType: rule.SensorType, Err: err}
	}

	a.mu.Lock()
	rule.FiringHistory = append(rule.FiringHistory, record)
	a.mu.Unlock()

	return record, nil
}
