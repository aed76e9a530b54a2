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

package db

import (
	"context"
	"fmt"

	"github.com/carverauto/sensorhub/pkg/models"
	"github.com/jackc/pgx/v5"
)

const (
	rulesForTypesSQL = `
SELECT id, sensor_type, condition, threshold, action, emails, username, version
FROM alert_rules
WHERE sensor_type = ANY($1)
ORDER BY sensor_type, id`

	insertFiringSQL = `
INSERT INTO alert_firings (rule_id, fired_at, message, device_id)
VALUES ($1, $2, $3, $4)`

	bumpRuleVersionSQL = `
UPDATE alert_rules
SET version = version + 1
WHERE id = $1`
)

// RulesForTypes returns every rule watching one of typeNames in a single
// round trip. Rules are global: any device reporting the type matches.
func (db *DB) RulesForTypes(ctx context.Context, typeNames []string) ([]*models.ThresholdRule, error) {
	if len(typeNames) == 0 {
		return nil, nil
	}

	rows, err := db.executor.Query(ctx, rulesForTypesSQL, typeNames)
	if err != nil {
		return nil, fmt.Errorf("%w alert rules: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var rules []*models.ThresholdRule

	for rows.Next() {
		var rule models.ThresholdRule

		if err := rows.Scan(
			&rule.ID,
			&rule.SensorType,
			&rule.Condition,
			&rule.Threshold,
			&rule.Action,
			&rule.Emails,
			&rule.Username,
			&rule.Version,
		); err != nil {
			return nil, fmt.Errorf("%w alert rule: %w", ErrFailedToScan, err)
		}

		rules = append(rules, &rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w alert rules: %w", ErrFailedToQuery, err)
	}

	return rules, nil
}

// AppendRuleFiring inserts a firing record and bumps the rule version in the
// same transaction. Concurrent firings of a shared rule never lose entries.
func (db *DB) AppendRuleFiring(ctx context.Context, ruleID string, record models.FiringRecord) error {
	err := db.withRetry(ctx, "append_rule_firing", func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, db.executor, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, insertFiringSQL,
				ruleID, record.Timestamp, record.Message, record.DeviceID); err != nil {
				return err
			}

			tag, err := tx.Exec(ctx, bumpRuleVersionSQL, ruleID)
			if err != nil {
				return err
			}

			if tag.RowsAffected() == 0 {
				return fmt.Errorf("%w: %s", ErrRuleNotFound, ruleID)
			}

			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("%w firing for rule %s: %w", ErrFailedToInsert, ruleID, err)
	}

	return nil
}
