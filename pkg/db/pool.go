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
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/sensorhub/pkg/logger"
	"github.com/carverauto/sensorhub/pkg/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultCNPGPort    = 5432
	defaultAppName     = "sensorhub"
	sslModeDisable     = "disable"
	sslModeVerifyFull  = "verify-full"
	runtimeParamSSL    = "sslmode"
	runtimeParamStmtTO = "statement_timeout"
)

// NewCNPGPool dials the configured CNPG cluster and returns a pgx pool.
func NewCNPGPool(ctx context.Context, cfg *models.CNPGDatabase, log logger.Logger) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, ErrCNPGConfigMissing
	}

	connURL, err := buildCNPGConnURL(cfg)
	if err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(connURL.String())
	if err != nil {
		return nil, fmt.Errorf("cnpg: failed to parse connection string: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}

	if cfg.MinConnections > 0 {
		poolConfig.MinConns = cfg.MinConnections
	}

	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime)
	}

	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = time.Duration(cfg.HealthCheckPeriod)
	}

	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = make(map[string]string)
	}

	for k, v := range cfg.ExtraRuntimeParams {
		if k == "" || strings.EqualFold(k, runtimeParamSSL) {
			continue
		}

		poolConfig.ConnConfig.RuntimeParams[k] = v
	}

	if cfg.StatementTimeout > 0 {
		ms := time.Duration(cfg.StatementTimeout).Milliseconds()
		poolConfig.ConnConfig.RuntimeParams[runtimeParamStmtTO] = strconv.FormatInt(ms, 10)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("cnpg: failed to initialize pool: %w", err)
	}

	if log != nil {
		log.Info().
			Str("host", cfg.Host).
			Int("port", connPort(cfg)).
			Str("database", cfg.Database).
			Int32("max_conns", poolConfig.MaxConns).
			Msg("connected to CNPG cluster")
	}

	return pool, nil
}

func connPort(cfg *models.CNPGDatabase) int {
	if cfg.Port == 0 {
		return defaultCNPGPort
	}

	return cfg.Port
}

// buildCNPGConnURL renders cfg as a postgres URL. TLS files are passed as
// sslcert/sslkey/sslrootcert and resolved against CertDir.
func buildCNPGConnURL(cfg *models.CNPGDatabase) (*url.URL, error) {
	connURL := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, connPort(cfg)),
		Path:   "/" + cfg.Database,
	}

	if cfg.Username != "" {
		if cfg.Password != "" {
			connURL.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			connURL.User = url.User(cfg.Username)
		}
	}

	sslMode, err := resolveCNPGSSLMode(cfg)
	if err != nil {
		return nil, err
	}

	query := connURL.Query()
	query.Set(runtimeParamSSL, sslMode)

	appName := cfg.ApplicationName
	if appName == "" {
		appName = defaultAppName
	}

	query.Set("application_name", appName)

	if cfg.TLS != nil {
		certFile := resolveCertPath(cfg.CertDir, cfg.TLS.CertFile)
		keyFile := resolveCertPath(cfg.CertDir, cfg.TLS.KeyFile)
		caFile := resolveCertPath(cfg.CertDir, cfg.TLS.CAFile)

		if certFile == "" || keyFile == "" || caFile == "" {
			return nil, ErrCNPGTLSIncomplete
		}

		query.Set("sslcert", certFile)
		query.Set("sslkey", keyFile)
		query.Set("sslrootcert", caFile)
	}

	connURL.RawQuery = query.Encode()

	return connURL, nil
}

// resolveCNPGSSLMode picks the sslmode from SSLMode, then from the runtime
// params, then defaults to verify-full with TLS and disable without.
func resolveCNPGSSLMode(cfg *models.CNPGDatabase) (string, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.SSLMode))

	if mode == "" {
		for k, v := range cfg.ExtraRuntimeParams {
			if strings.EqualFold(k, runtimeParamSSL) {
				mode = strings.ToLower(strings.TrimSpace(v))
			}
		}
	}

	if cfg.TLS != nil {
		if mode == sslModeDisable {
			return "", ErrCNPGTLSDisabled
		}

		if mode == "" {
			mode = sslModeVerifyFull
		}
	}

	if mode == "" {
		mode = sslModeDisable
	}

	return mode, nil
}

func resolveCertPath(certDir, path string) string {
	if path == "" || filepath.IsAbs(path) || certDir == "" {
		return path
	}

	return filepath.Join(certDir, path)
}
