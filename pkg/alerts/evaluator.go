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

// Package alerts evaluates threshold rules against committed telemetry,
// notifies the rule recipients and records every firing.
package alerts

import (
	"strconv"
	"strings"

	"github.com/carverauto/sensorhub/pkg/models"
)

type comparator func(value, threshold float64) bool

// Both boundaries are exclusive: a reading equal to the threshold never fires.
//
//nolint:gochecknoglobals // fixed operator table
var comparators = map[models.Condition]comparator{
	models.ConditionUnder: func(v, t float64) bool { return v < t },
	models.ConditionAbove: func(v, t float64) bool { return v > t },
}

// ParseValue reads a reading value as a float. Surrounding whitespace is
// ignored.
func ParseValue(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}

	return v, true
}

// Evaluate reports whether reading satisfies rule. Unparsable values and
// unknown conditions never match.
func Evaluate(rule *models.ThresholdRule, reading *models.ResolvedReading) bool {
	if rule == nil || reading == nil {
		return false
	}

	cmp, ok := comparators[rule.Condition]
	if !ok {
		return false
	}

	value, ok := ParseValue(reading.Value)
	if !ok {
		return false
	}

	return cmp(value, rule.Threshold)
}

// FormatThreshold renders a threshold the way it appears in messages: no
// trailing zeros, no exponent for ordinary values.
func FormatThreshold(threshold float64) string {
	return strconv.FormatFloat(threshold, 'f', -1, 64)
}
