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
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes for transient errors that should be retried.
const (
	sqlstateDeadlockDetected    = "40P01"
	sqlstateSerializationFailed = "40001"
	sqlstateStatementTimeout    = "57014"
)

const (
	defaultCNPGMaxRetryAttempts  = 3
	defaultCNPGDeadlockBackoffMs = 500
	defaultCNPGBaseBackoffMs     = 150
	cnpgMaxRetryAttemptsEnv      = "CNPG_MAX_RETRY_ATTEMPTS"
	cnpgDeadlockBackoffMsEnv     = "CNPG_DEADLOCK_BACKOFF_MS"
)

// classifyCNPGError returns the SQLSTATE of err and whether it is transient.
func classifyCNPGError(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlstateDeadlockDetected, sqlstateSerializationFailed, sqlstateStatementTimeout:
			return pgErr.Code, true
		}

		return pgErr.Code, false
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "40p01"), strings.Contains(msg, "deadlock detected"):
		return sqlstateDeadlockDetected, true
	case strings.Contains(msg, "40001"), strings.Contains(msg, "could not serialize access"):
		return sqlstateSerializationFailed, true
	case strings.Contains(msg, "57014"), strings.Contains(msg, "statement timeout"):
		return sqlstateStatementTimeout, true
	default:
		return "", false
	}
}

// cnpgBackoffDelay is exponential in attempt with up to one base of jitter.
// Lock conflicts start from a longer base.
func cnpgBackoffDelay(attempt int, sqlstate string) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	base := time.Duration(defaultCNPGBaseBackoffMs) * time.Millisecond

	switch sqlstate {
	case sqlstateDeadlockDetected, sqlstateSerializationFailed:
		base = time.Duration(getCNPGDeadlockBackoffMs()) * time.Millisecond
	}

	return base*time.Duration(1<<(attempt-1)) + rand.N(base)
}

// withRetry runs op until it succeeds, fails with a non transient error or
// runs out of attempts.
func (db *DB) withRetry(ctx context.Context, name string, op func(ctx context.Context) error) error {
	var err error

	for attempt := 1; attempt <= db.maxAttempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}

		code, transient := classifyCNPGError(err)
		if !transient || attempt == db.maxAttempts {
			break
		}

		delay := db.backoff(attempt, code)

		db.logger.Warn().
			Err(err).
			Str("sqlstate", code).
			Str("operation", name).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("cnpg transient error, retrying")

		timer := time.NewTimer(delay)

		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}

	return err
}

func sendBatchExecAll(ctx context.Context, batch *pgx.Batch, send func(context.Context, *pgx.Batch) pgx.BatchResults, operation string) (err error) {
	if batch == nil || batch.Len() == 0 {
		return nil
	}

	br := send(ctx, batch)
	defer func() {
		if closeErr := br.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%s batch close: %w", operation, closeErr)
		}
	}()

	for i := 0; i < batch.Len(); i++ {
		if _, err = br.Exec(); err != nil {
			return fmt.Errorf("%s batch exec (command %d): %w", operation, i, err)
		}
	}

	return nil
}

func getCNPGMaxRetryAttempts() int {
	return envPositiveInt(cnpgMaxRetryAttemptsEnv, defaultCNPGMaxRetryAttempts)
}

func getCNPGDeadlockBackoffMs() int {
	return envPositiveInt(cnpgDeadlockBackoffMsEnv, defaultCNPGDeadlockBackoffMs)
}

func envPositiveInt(key string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
