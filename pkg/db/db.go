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

// Package db implements the Postgres (CloudNativePG) storage used by the
// ingestion path.
package db

import (
	"context"
	"time"

	"github.com/carverauto/sensorhub/pkg/logger"
	"github.com/carverauto/sensorhub/pkg/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxExecutor is the subset of *pgxpool.Pool the store uses.
type pgxExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DB implements Service on top of a pgx pool.
type DB struct {
	pool     *pgxpool.Pool
	executor pgxExecutor
	logger   logger.Logger

	maxAttempts int
	backoff     func(attempt int, sqlstate string) time.Duration
	now         func() time.Time
}

var _ Service = (*DB)(nil)

// New connects to the cluster described by cfg and applies the embedded
// migrations.
func New(ctx context.Context, cfg *models.CNPGDatabase, log logger.Logger) (*DB, error) {
	if cfg == nil {
		return nil, ErrCNPGConfigMissing
	}

	pool, err := NewCNPGPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if err := RunCNPGMigrations(ctx, pool, log); err != nil {
		pool.Close()
		return nil, err
	}

	db := newDB(pool, log)
	db.pool = pool

	return db, nil
}

func newDB(executor pgxExecutor, log logger.Logger) *DB {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &DB{
		executor:    executor,
		logger:      log,
		maxAttempts: getCNPGMaxRetryAttempts(),
		backoff:     cnpgBackoffDelay,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Ping checks that the cluster is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if db.pool == nil {
		return nil
	}

	return db.pool.Ping(ctx)
}

// Close releases the pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}
