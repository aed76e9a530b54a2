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
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName               = "sensorhub.reconcile"
	metricReconcileTotal    = "sensorhub_reconcile_total"
	metricReconcileConflict = "sensorhub_reconcile_conflicts_total"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	resultCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	conflictCounter metric.Int64Counter
)

func initMeter() {
	meter := otel.Meter(meterName)

	results, err := meter.Int64Counter(
		metricReconcileTotal,
		metric.WithDescription("Configuration reports by outcome"),
	)
	if err != nil {
		otel.Handle(err)
	}
	resultCounter = results

	conflicts, err := meter.Int64Counter(
		metricReconcileConflict,
		metric.WithDescription("Config version conflicts that triggered a retry"),
	)
	if err != nil {
		otel.Handle(err)
	}
	conflictCounter = conflicts
}

func recordResult(ctx context.Context, result string) {
	meterOnce.Do(initMeter)
	if resultCounter == nil {
		return
	}

	resultCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func recordConflict(ctx context.Context) {
	meterOnce.Do(initMeter)
	if conflictCounter == nil {
		return
	}

	conflictCounter.Add(ctx, 1)
}
