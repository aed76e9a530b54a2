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
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	errFakeQueryNotImplemented = errors.New("Query not implemented in fakePgxExecutor")
	errFakeBatchQuery          = errors.New("Query not implemented in fakeBatchResults")
	errBoom                    = errors.New("boom")
	errCloseFailed             = errors.New("close failed")
)

type fakeBatchResults struct {
	execCalls int
	execErrAt int
	execErr   error

	closeCalls int
	closeErr   error
}

func (f *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	defer func() { f.execCalls++ }()

	if f.execErr != nil && f.execCalls == f.execErrAt {
		return pgconn.CommandTag{}, f.execErr
	}

	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (*fakeBatchResults) Query() (pgx.Rows, error) { return nil, errFakeBatchQuery }
func (*fakeBatchResults) QueryRow() pgx.Row        { return fakeRow{err: errFakeBatchQuery} }

func (f *fakeBatchResults) Close() error {
	f.closeCalls++
	return f.closeErr
}

// fakeRow assigns values to the scan destinations in order.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}

	for i := range dest {
		if i >= len(r.values) || r.values[i] == nil {
			continue
		}

		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(r.values[i]))
	}

	return nil
}

// fakePgxExecutor hands out scripted results in call order.
type fakePgxExecutor struct {
	batchResults []*fakeBatchResults
	execResults  []execResult
	rows         []fakeRow

	begins    int
	commits   int
	sent      []*pgx.Batch
	execSQL   []string
	rowArgs   [][]any
	sendCalls int
}

type execResult struct {
	tag string
	err error
}

func (f *fakePgxExecutor) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)

	if len(f.execResults) == 0 {
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}

	res := f.execResults[0]
	f.execResults = f.execResults[1:]

	return pgconn.NewCommandTag(res.tag), res.err
}

func (*fakePgxExecutor) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errFakeQueryNotImplemented
}

func (f *fakePgxExecutor) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	f.rowArgs = append(f.rowArgs, args)

	if len(f.rows) == 0 {
		return fakeRow{err: pgx.ErrNoRows}
	}

	row := f.rows[0]
	f.rows = f.rows[1:]

	return row
}

func (f *fakePgxExecutor) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	f.sent = append(f.sent, b)
	f.sendCalls++

	if len(f.batchResults) == 0 {
		return &fakeBatchResults{}
	}

	br := f.batchResults[0]
	f.batchResults = f.batchResults[1:]

	return br
}

func (f *fakePgxExecutor) Begin(context.Context) (pgx.Tx, error) {
	f.begins++
	return &fakeTx{owner: f}, nil
}

// fakeTx routes statements back to its executor. Methods the store does not
// use are left to the embedded nil interface.
type fakeTx struct {
	pgx.Tx
	owner *fakePgxExecutor
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.owner.Exec(ctx, sql, args...)
}

func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return t.owner.SendBatch(ctx, b)
}

func (t *fakeTx) Commit(context.Context) error {
	t.owner.commits++
	return nil
}

func (*fakeTx) Rollback(context.Context) error { return nil }
