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
	"testing"

	"github.com/carverauto/sensorhub/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	under := &models.ThresholdRule{Condition: models.ConditionUnder, Threshold: 10}
	above := &models.ThresholdRule{Condition: models.ConditionAbove, Threshold: 10}

	tests := []struct {
		name  string
		rule  *models.ThresholdRule
		value string
		want  bool
	}{
		{name: "under below threshold", rule: under, value: "9.5", want: true},
		{name: "under at threshold", rule: under, value: "10", want: false},
		{name: "under above threshold", rule: under, value: "10.5", want: false},
		{name: "above at threshold", rule: above, value: "10", want: false},
		{name: "above over threshold", rule: above, value: "10.0001", want: true},
		{name: "whitespace trimmed", rule: under, value: " 9.5\t", want: true},
		{name: "negative", rule: under, value: "-3", want: true},
		{name: "exponent", rule: above, value: "1e3", want: true},
		{name: "not a number", rule: under, value: "cold", want: false},
		{name: "empty", rule: under, value: "", want: false},
		{name: "NaN never compares", rule: under, value: "NaN", want: false},
		{name: "unknown condition", rule: &models.ThresholdRule{Condition: "equals", Threshold: 10}, value: "10", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading := &models.ResolvedReading{TypeName: "temperature", Value: tt.value}
			assert.Equal(t, tt.want, Evaluate(tt.rule, reading))
		})
	}
}

func TestEvaluateNil(t *testing.T) {
	assert.False(t, Evaluate(nil, &models.ResolvedReading{Value: "1"}))
	assert.False(t, Evaluate(&models.ThresholdRule{Condition: models.ConditionAbove}, nil))
}

func TestFormatThreshold(t *testing.T) {
	assert.Equal(t, "10", FormatThreshold(10))
	assert.Equal(t, "2.5", FormatThreshold(2.5))
	assert.Equal(t, "-0.125", FormatThreshold(-0.125))
}
