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
	"testing"
	"time"

	"github.com/carverauto/sensorhub/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(exec pgxExecutor) *DB {
	db := newDB(exec, logger.NewTestLogger())
	db.maxAttempts = 3
	db.backoff = func(int, string) time.Duration { return 0 }

	return db
}

func TestClassifyCNPGError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      string
		transient bool
	}{
		{name: "nil", err: nil, code: "", transient: false},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, code: sqlstateDeadlockDetected, transient: true},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, code: sqlstateSerializationFailed, transient: true},
		{name: "statement timeout", err: &pgconn.PgError{Code: "57014"}, code: sqlstateStatementTimeout, transient: true},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, code: "23505", transient: false},
		{name: "wrapped pg error", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "40P01"}), code: sqlstateDeadlockDetected, transient: true},
		{name: "deadlock text", err: fmt.Errorf("ERROR: deadlock detected (SQLSTATE 40P01)"), code: sqlstateDeadlockDetected, transient: true},
		{name: "serialize text", err: fmt.Errorf("could not serialize access due to concurrent update"), code: sqlstateSerializationFailed, transient: true},
		{name: "unknown", err: errBoom, code: "", transient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, transient := classifyCNPGError(tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.transient, transient)
		})
	}
}

func TestCNPGBackoffDelay(t *testing.T) {
	deadlock := cnpgBackoffDelay(1, sqlstateDeadlockDetected)
	regular := cnpgBackoffDelay(1, sqlstateStatementTimeout)
	second := cnpgBackoffDelay(2, sqlstateStatementTimeout)

	assert.GreaterOrEqual(t, deadlock.Milliseconds(), int64(defaultCNPGDeadlockBackoffMs))
	assert.GreaterOrEqual(t, regular.Milliseconds(), int64(defaultCNPGBaseBackoffMs))
	assert.Less(t, regular.Milliseconds(), int64(2*defaultCNPGBaseBackoffMs))
	assert.GreaterOrEqual(t, second.Milliseconds(), int64(2*defaultCNPGBaseBackoffMs))
}

func TestGetCNPGMaxRetryAttempts(t *testing.T) {
	t.Setenv(cnpgMaxRetryAttemptsEnv, "5")
	assert.Equal(t, 5, getCNPGMaxRetryAttempts())

	t.Setenv(cnpgMaxRetryAttemptsEnv, "-1")
	assert.Equal(t, defaultCNPGMaxRetryAttempts, getCNPGMaxRetryAttempts())
}

func TestWithRetry(t *testing.T) {
	t.Run("retries transient errors until success", func(t *testing.T) {
		db := newTestDB(&fakePgxExecutor{})
		calls := 0

		err := db.withRetry(context.Background(), "op", func(context.Context) error {
			calls++
			if calls < 3 {
				return &pgconn.PgError{Code: sqlstateSerializationFailed}
			}

			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on permanent error", func(t *testing.T) {
		db := newTestDB(&fakePgxExecutor{})
		calls := 0

		err := db.withRetry(context.Background(), "op", func(context.Context) error {
			calls++
			return pgx.ErrNoRows
		})

		require.ErrorIs(t, err, pgx.ErrNoRows)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		db := newTestDB(&fakePgxExecutor{})
		calls := 0

		err := db.withRetry(context.Background(), "op", func(context.Context) error {
			calls++
			return &pgconn.PgError{Code: sqlstateDeadlockDetected}
		})

		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("honours cancellation during backoff", func(t *testing.T) {
		db := newTestDB(&fakePgxExecutor{})
		db.backoff = func(int, string) time.Duration { return time.Hour }

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := db.withRetry(ctx, "op", func(context.Context) error {
			return &pgconn.PgError{Code: sqlstateDeadlockDetected}
		})

		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestSendBatchExecAll_EmptyBatchDoesNotSend(t *testing.T) {
	err := sendBatchExecAll(context.Background(), &pgx.Batch{}, func(context.Context, *pgx.Batch) pgx.BatchResults {
		t.Fatalf("SendBatch should not be called for empty batch")
		return nil
	}, "test")
	require.NoError(t, err)
}

func TestSendBatchExecAll_ExecErrorIncludesCommandIndexAndCloses(t *testing.T) {
	batch := &pgx.Batch{}
	batch.Queue("SELECT 1")
	batch.Queue("SELECT 2")
	batch.Queue("SELECT 3")

	br := &fakeBatchResults{execErrAt: 1, execErr: errBoom}

	err := sendBatchExecAll(context.Background(), batch, func(context.Context, *pgx.Batch) pgx.BatchResults {
		return br
	}, "op-name")
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "op-name batch exec (command 1)")
	assert.Equal(t, 1, br.closeCalls)
}

func TestSendBatchExecAll_CloseErrorReturnedWhenExecSucceeds(t *testing.T) {
	batch := &pgx.Batch{}
	batch.Queue("SELECT 1")

	br := &fakeBatchResults{closeErr: errCloseFailed}

	err := sendBatchExecAll(context.Background(), batch, func(context.Context, *pgx.Batch) pgx.BatchResults {
		return br
	}, "op-name")
	require.ErrorIs(t, err, errCloseFailed)
	assert.Contains(t, err.Error(), "op-name batch close: close failed")
}
