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

	"github.com/carverauto/sensorhub/pkg/db"
	"github.com/carverauto/sensorhub/pkg/models"
)

// RuleIndex groups candidate rules by sensor type name.
type RuleIndex map[string][]*models.ThresholdRule

// For returns the rules watching typeName. Matching is exact.
func (ix RuleIndex) For(typeName string) []*models.ThresholdRule {
	return ix[typeName]
}

// Len is the number of indexed rules.
func (ix RuleIndex) Len() int {
	n := 0
	for _, rules := range ix {
		n += len(rules)
	}

	return n
}

// Matcher selects the rules that apply to a batch. Rules are global: any
// device reporting a type is matched against every rule on that type.
type Matcher struct {
	rules db.RuleStore
}

// NewMatcher returns a Matcher reading from store.
func NewMatcher(store db.RuleStore) *Matcher {
	return &Matcher{rules: store}
}

// MatchRules fetches the rules for all typeNames in one lookup.
func (m *Matcher) MatchRules(ctx context.Context, typeNames []string) (RuleIndex, error) {
	rules, err := m.rules.RulesForTypes(ctx, typeNames)
	if err != nil {
		return nil, &models.EvaluationError{Err: err}
	}

	ix := make(RuleIndex, len(typeNames))
	for _, rule := range rules {
		ix[rule.SensorType] = append(ix[rule.SensorType], rule)
	}

	return ix, nil
}
