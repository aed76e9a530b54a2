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

package logger

import (
	"os"
	"strings"
	"time"
)

const (
	defaultServiceName  = "sensorhub"
	defaultBatchTimeout = 5 * time.Second

	// envPrefix lets sensorhub specific variables override the generic ones.
	envPrefix = "SENSORHUB_"
)

// DefaultConfig reads logging settings from the environment. LOG_LEVEL,
// LOG_OUTPUT, LOG_TIME_FORMAT and DEBUG may each be given a SENSORHUB_ prefix,
// which wins over the bare name.
func DefaultConfig() *Config {
	return &Config{
		Level:      envString("LOG_LEVEL", "info"),
		Debug:      envBool("DEBUG", false),
		Output:     envString("LOG_OUTPUT", "stdout"),
		TimeFormat: envString("LOG_TIME_FORMAT", ""),
		OTel:       DefaultOTelConfig(),
	}
}

// DefaultOTelConfig reads the standard OTEL_* exporter variables.
func DefaultOTelConfig() OTelConfig {
	batchTimeout := defaultBatchTimeout

	if raw := os.Getenv("OTEL_EXPORTER_OTLP_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			batchTimeout = d
		}
	}

	return OTelConfig{
		Enabled:      envBool("OTEL_ENABLED", false),
		Endpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Headers:      parseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		ServiceName:  envString("OTEL_SERVICE_NAME", defaultServiceName),
		BatchTimeout: Duration(batchTimeout),
		Insecure:     envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
	}
}

// parseHeaders reads "k1=v1,k2=v2". Pairs without '=' are skipped.
func parseHeaders(raw string) map[string]string {
	headers := make(map[string]string)

	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}

		headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}

	return headers
}

func lookupEnv(key string) (string, bool) {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v, true
	}

	if v := os.Getenv(key); v != "" {
		return v, true
	}

	return "", false
}

func envString(key, fallback string) string {
	if v, ok := lookupEnv(key); ok {
		return v
	}

	return fallback
}

func envBool(key string, fallback bool) bool {
	v, ok := lookupEnv(key)
	if !ok {
		return fallback
	}

	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}
