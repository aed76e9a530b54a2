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

package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName           = "sensorhub.consumers.telemetry"
	metricMessagesTotal = "sensorhub_nats_messages_total"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	messageCounter metric.Int64Counter
)

func initMeter() {
	meter := otel.Meter(meterName)

	messages, err := meter.Int64Counter(
		metricMessagesTotal,
		metric.WithDescription("Telemetry messages consumed from JetStream by disposition"),
	)
	if err != nil {
		otel.Handle(err)
	}
	messageCounter = messages
}

func recordMessage(ctx context.Context, d Disposition) {
	meterOnce.Do(initMeter)
	if messageCounter == nil {
		return
	}

	messageCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("disposition", d.String())))
}
