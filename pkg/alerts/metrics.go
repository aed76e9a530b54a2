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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName                 = "sensorhub.alerts"
	metricAlertsFiredTotal    = "sensorhub_alerts_fired_total"
	metricDeliveriesTotal     = "sensorhub_alert_deliveries_total"
	metricRulesEvaluatedTotal = "sensorhub_rules_evaluated_total"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	firedCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	deliveryCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	evaluatedCounter metric.Int64Counter
)

func initMeter() {
	meter := otel.Meter(meterName)

	fired, err := meter.Int64Counter(
		metricAlertsFiredTotal,
		metric.WithDescription("Threshold rules that fired"),
	)
	if err != nil {
		otel.Handle(err)
	}
	firedCounter = fired

	deliveries, err := meter.Int64Counter(
		metricDeliveriesTotal,
		metric.WithDescription("Notification sends by outcome"),
	)
	if err != nil {
		otel.Handle(err)
	}
	deliveryCounter = deliveries

	evaluated, err := meter.Int64Counter(
		metricRulesEvaluatedTotal,
		metric.WithDescription("Reading and rule pairs evaluated"),
	)
	if err != nil {
		otel.Handle(err)
	}
	evaluatedCounter = evaluated
}

func recordFired(ctx context.Context, condition string) {
	meterOnce.Do(initMeter)
	if firedCounter == nil {
		return
	}

	firedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("condition", condition)))
}

func recordDeliveries(ctx context.Context, sent, failed int) {
	meterOnce.Do(initMeter)
	if deliveryCounter == nil {
		return
	}

	if sent > 0 {
		deliveryCounter.Add(ctx, int64(sent), metric.WithAttributes(attribute.String("status", "sent")))
	}

	if failed > 0 {
		deliveryCounter.Add(ctx, int64(failed), metric.WithAttributes(attribute.String("status", "failed")))
	}
}

func recordEvaluated(ctx context.Context, pairs int) {
	if pairs == 0 {
		return
	}

	meterOnce.Do(initMeter)
	if evaluatedCounter == nil {
		return
	}

	evaluatedCounter.Add(ctx, int64(pairs))
}
