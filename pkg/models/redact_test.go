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

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterSensitiveFields(t *testing.T) {
	cfg := &SensorhubConfig{
		ListenAddr: ":8090",
		Database: &CNPGDatabase{
			Host:     "pg",
			Database: "sensorhub",
			Password: "hunter2",
		},
		Mail: MailConfig{
			Enabled:  true,
			Host:     "smtp.example.com",
			Username: "alerts",
			Password: "s3cret",
		},
		CORS: CORSConfig{AllowedOrigins: []string{"*"}},
	}

	safe, err := FilterSensitiveFields(cfg)
	require.NoError(t, err)

	assert.Equal(t, ":8090", safe["listen_addr"])

	db, ok := safe["database"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pg", db["host"])
	assert.NotContains(t, db, "password")

	mail, ok := safe["mail"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alerts", mail["username"])
	assert.NotContains(t, mail, "password")

	cors, ok := safe["cors"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"*"}, cors["allowed_origins"])

	assert.Nil(t, safe["nats"])
}

func TestFilterSensitiveFieldsRejectsNonStruct(t *testing.T) {
	_, err := FilterSensitiveFields("plain")
	require.ErrorIs(t, err, errNotStruct)

	safe, err := FilterSensitiveFields(nil)
	require.NoError(t, err)
	assert.Empty(t, safe)
}
