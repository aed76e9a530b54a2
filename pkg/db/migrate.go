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
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"unicode"

	"github.com/carverauto/sensorhub/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	migrationsTable = "sensorhub_schema_migrations"
	migrationsDir   = "migrations"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunCNPGMigrations applies every embedded .up.sql file that is not yet
// recorded in the tracking table, in file name order.
func RunCNPGMigrations(ctx context.Context, pool *pgxpool.Pool, log logger.Logger) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("cnpg migrations: acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version     TEXT PRIMARY KEY,
		applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, migrationsTable)); err != nil {
		return fmt.Errorf("cnpg migrations: create tracking table: %w", err)
	}

	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return err
	}

	filenames, err := pendingMigrations(migrationsFS, applied)
	if err != nil {
		return err
	}

	for _, name := range filenames {
		log.Info().Str("migration", name).Msg("applying CNPG migration")

		content, err := migrationsFS.ReadFile(migrationsDir + "/" + name)
		if err != nil {
			return fmt.Errorf("cnpg migrations: read %s: %w", name, err)
		}

		for idx, stmt := range splitSQLStatements(string(content)) {
			if _, err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("cnpg migrations: statement %d in %s failed: %w", idx+1, name, err)
			}
		}

		if _, err := conn.Exec(ctx,
			fmt.Sprintf(`INSERT INTO %s (version) VALUES ($1)`, migrationsTable),
			extractVersion(name)); err != nil {
			return fmt.Errorf("cnpg migrations: record %s: %w", name, err)
		}
	}

	return nil
}

func appliedVersions(ctx context.Context, conn *pgxpool.Conn) (map[string]struct{}, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf(`SELECT version FROM %s`, migrationsTable))
	if err != nil {
		return nil, fmt.Errorf("cnpg migrations: list applied versions: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]struct{})

	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("cnpg migrations: scan applied version: %w", err)
		}

		applied[version] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cnpg migrations: iterate applied versions: %w", err)
	}

	return applied, nil
}

// pendingMigrations lists the .up.sql files of fsys whose version is not in
// applied. Down migrations are for manual rollbacks only.
func pendingMigrations(fsys fs.FS, applied map[string]struct{}) ([]string, error) {
	entries, err := fs.ReadDir(fsys, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("cnpg migrations: read embedded migrations: %w", err)
	}

	filenames := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}

		if _, ok := applied[extractVersion(entry.Name())]; ok {
			continue
		}

		filenames = append(filenames, entry.Name())
	}

	sort.Strings(filenames)

	return filenames, nil
}

func extractVersion(filename string) string {
	version, _, _ := strings.Cut(filename, "_")
	return version
}

type sqlParseState struct {
	inSingleQuote  bool
	inDoubleQuote  bool
	inLineComment  bool
	inBlockComment bool
	dollarTag      string
}

// splitSQLStatements splits a migration on top level semicolons. Quotes,
// comments and dollar quoted function bodies are honoured.
func splitSQLStatements(content string) []string {
	var (
		statements []string
		current    strings.Builder
	)

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}

		current.Reset()
	}

	state := &sqlParseState{}

	for i := 0; i < len(content); i++ {
		ch := content[i]
		quoted := state.inSingleQuote || state.inDoubleQuote

		switch {
		case state.inLineComment:
			if ch == '\n' {
				state.inLineComment = false
				current.WriteByte(ch)
			}
		case state.inBlockComment:
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				state.inBlockComment = false
				i++
			}
		case state.dollarTag != "":
			if strings.HasPrefix(content[i:], state.dollarTag) {
				current.WriteString(state.dollarTag)
				i += len(state.dollarTag) - 1
				state.dollarTag = ""
			} else {
				current.WriteByte(ch)
			}
		case !quoted && strings.HasPrefix(content[i:], "--"):
			state.inLineComment = true
			i++
		case !quoted && strings.HasPrefix(content[i:], "/*"):
			state.inBlockComment = true
			i++
		case !quoted && ch == '$' && dollarTagAt(content[i:]) != "":
			state.dollarTag = dollarTagAt(content[i:])
			current.WriteString(state.dollarTag)
			i += len(state.dollarTag) - 1
		case !state.inDoubleQuote && ch == '\'':
			state.inSingleQuote = !state.inSingleQuote
			current.WriteByte(ch)
		case !state.inSingleQuote && ch == '"':
			state.inDoubleQuote = !state.inDoubleQuote
			current.WriteByte(ch)
		case ch == ';' && !quoted:
			flush()
		default:
			current.WriteByte(ch)
		}
	}

	flush()

	return statements
}

// dollarTagAt returns the $tag$ opening content, or "".
func dollarTagAt(content string) string {
	if content == "" || content[0] != '$' {
		return ""
	}

	for i := 1; i < len(content); i++ {
		if content[i] == '$' {
			return content[:i+1]
		}

		ch := rune(content[i])
		if ch != '_' && !unicode.IsLetter(ch) && !unicode.IsDigit(ch) {
			return ""
		}
	}

	return ""
}
