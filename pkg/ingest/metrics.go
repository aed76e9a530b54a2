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
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName               = "sensorhub.ingest"
	metricRequestsTotal     = "sensorhub_ingest_requests_total"
	metricReadingsPersisted = "sensorhub_readings_persisted_total"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	requestCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	readingsCounter metric.Int64Counter
)

func initMeter() {
	meter := otel.Meter(meterName)

	requests, err := meter.Int64Counter(
		metricRequestsTotal,
		metric.WithDescription("Device submissions by path and status"),
	)
	if err != nil {
		otel.Handle(err)
	}
	requestCounter = requests

	readings, err := meter.Int64Counter(
		metricReadingsPersisted,
		metric.WithDescription("Readings committed to the telemetry store"),
	)
	if err != nil {
		otel.Handle(err)
	}
	readingsCounter = readings
}

func recordRequest(ctx context.Context, path, status string) {
	meterOnce.Do(initMeter)
	if requestCounter == nil {
		return
	}

	requestCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("path", path),
		attribute.String("status", status),
	))
}

func recordPersisted(ctx context.Context, n int) {
	meterOnce.Do(initMeter)
	if readingsCounter == nil {
		return
	}

	readingsCounter.Add(ctx, int64(n))
}
