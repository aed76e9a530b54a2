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
	"testing"

	"github.com/carverauto/sensorhub/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCNPGConnURL(t *testing.T) {
	cfg := &models.CNPGDatabase{
		Host:     "cnpg-rw",
		Database: "sensorhub",
		Username: "ingest",
		Password: "s3cret",
		CertDir:  "/etc/sensorhub/certs",
		TLS: &models.TLSConfig{
			CertFile: "client.pem",
			KeyFile:  "client-key.pem",
			CAFile:   "/abs/root.pem",
		},
	}

	u, err := buildCNPGConnURL(cfg)
	require.NoError(t, err)

	assert.Equal(t, "cnpg-rw:5432", u.Host)
	assert.Equal(t, "/sensorhub", u.Path)
	assert.Equal(t, "ingest", u.User.Username())

	q := u.Query()
	assert.Equal(t, "verify-full", q.Get("sslmode"))
	assert.Equal(t, "sensorhub", q.Get("application_name"))
	assert.Equal(t, "/etc/sensorhub/certs/client.pem", q.Get("sslcert"))
	assert.Equal(t, "/etc/sensorhub/certs/client-key.pem", q.Get("sslkey"))
	assert.Equal(t, "/abs/root.pem", q.Get("sslrootcert"))
}

func TestBuildCNPGConnURLIncompleteTLS(t *testing.T) {
	cfg := &models.CNPGDatabase{
		Host:     "cnpg-rw",
		Database: "sensorhub",
		TLS:      &models.TLSConfig{CertFile: "client.pem"},
	}

	_, err := buildCNPGConnURL(cfg)
	require.ErrorIs(t, err, ErrCNPGTLSIncomplete)
}

func TestResolveCNPGSSLMode(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *models.CNPGDatabase
		want    string
		wantErr error
	}{
		{
			name: "defaults to disable without TLS",
			cfg:  &models.CNPGDatabase{},
			want: "disable",
		},
		{
			name: "defaults to verify-full with TLS",
			cfg:  &models.CNPGDatabase{TLS: &models.TLSConfig{}},
			want: "verify-full",
		},
		{
			name: "explicit mode wins",
			cfg:  &models.CNPGDatabase{SSLMode: " Require "},
			want: "require",
		},
		{
			name: "falls back to runtime params",
			cfg:  &models.CNPGDatabase{ExtraRuntimeParams: map[string]string{"SSLMODE": "verify-ca"}},
			want: "verify-ca",
		},
		{
			name:    "TLS with disable is rejected",
			cfg:     &models.CNPGDatabase{SSLMode: "disable", TLS: &models.TLSConfig{}},
			wantErr: ErrCNPGTLSDisabled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveCNPGSSLMode(tt.cfg)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
