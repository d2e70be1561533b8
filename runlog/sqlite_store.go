// Copyright 2025 The NLP Odyssey Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package runlog

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/nlpodyssey/cardpilot-verify/verify"
)

// SQLiteStore is a SQLite-based run history.
//
// By default, uses an in-memory database that is lost when the process ends.
// For persistent storage, provide a file path.
type SQLiteStore struct {
	dbDSN string
	table string
	db    *sql.DB
	mu    sync.Mutex
}

type SQLiteStoreParams struct {
	// Optional database data source name.
	// Defaults to "file::memory:?cache=shared".
	DBDataSourceName string

	// Optional name of the results table.
	// Defaults to DefaultTable.
	Table string
}

// NewSQLiteStore opens the database and creates the schema if needed.
func NewSQLiteStore(ctx context.Context, params SQLiteStoreParams) (_ *SQLiteStore, err error) {
	s := &SQLiteStore{
		dbDSN: cmp.Or(params.DBDataSourceName, "file::memory:?cache=shared"),
		table: cmp.Or(params.Table, DefaultTable),
	}

	defer func() {
		if err != nil && s.db != nil {
			if e := s.db.Close(); e != nil {
				err = errors.Join(err, e)
			}
		}
	}()

	s.db, err = sql.Open("sqlite3", s.dbDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite3 database: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `PRAGMA journal_mode=WAL`)
	if err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	err = s.initDB(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Record(ctx context.Context, runID string, result verify.QuestionResult) error {
	return s.insert(ctx, NewRecord(runID, result))
}

func (s *SQLiteStore) insert(ctx context.Context, rec Record) error {
	toolCalls, err := marshalToolCalls(rec.ToolCalls)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(
		ctx,
		fmt.Sprintf(`
			INSERT INTO "%s" (run_id, question_index, question, response_id, output_text, tool_calls, error, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, s.table),
		rec.RunID, rec.Index, rec.Question, rec.ResponseID, rec.OutputText, toolCalls, rec.Error,
		rec.CreatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("error inserting question result: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) (_ []RunInfo, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := fmt.Sprintf(`
		SELECT run_id, COUNT(*), SUM(CASE WHEN error <> '' THEN 1 ELSE 0 END), MIN(created_at)
		FROM "%s"
		GROUP BY run_id
		ORDER BY MIN(id) DESC
	`, s.table)
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying runs: %w", err)
	}
	defer func() {
		if e := rows.Close(); e != nil {
			err = errors.Join(err, fmt.Errorf("error closing sql.Rows: %w", e))
		}
	}()

	var runs []RunInfo
	for rows.Next() {
		var (
			run       RunInfo
			startedAt string
		)
		if err = rows.Scan(&run.RunID, &run.Questions, &run.Failed, &startedAt); err != nil {
			return nil, fmt.Errorf("sql rows scan error: %w", err)
		}
		run.StartedAt = parseTime(startedAt)
		runs = append(runs, run)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("sql rows scan error: %w", err)
	}
	return runs, nil
}

func (s *SQLiteStore) GetResults(ctx context.Context, runID string) (_ []Record, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT question_index, question, response_id, output_text, tool_calls, error, created_at
		FROM "%s"
		WHERE run_id = ?
		ORDER BY question_index ASC, id ASC
	`, s.table), runID)
	if err != nil {
		return nil, fmt.Errorf("error querying run results: %w", err)
	}
	defer func() {
		if e := rows.Close(); e != nil {
			err = errors.Join(err, fmt.Errorf("error closing sql.Rows: %w", e))
		}
	}()

	var records []Record
	for rows.Next() {
		var (
			rec       = Record{RunID: runID}
			toolCalls string
			createdAt string
		)
		err = rows.Scan(&rec.Index, &rec.Question, &rec.ResponseID, &rec.OutputText, &toolCalls, &rec.Error, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("sql rows scan error: %w", err)
		}
		rec.ToolCalls = unmarshalToolCalls(toolCalls)
		rec.CreatedAt = parseTime(createdAt)
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("sql rows scan error: %w", err)
	}
	return records, nil
}

// Initialize the database schema.
func (s *SQLiteStore) initDB(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s" (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			question_index INTEGER NOT NULL,
			question TEXT NOT NULL,
			response_id TEXT NOT NULL DEFAULT '',
			output_text TEXT NOT NULL DEFAULT '',
			tool_calls TEXT NOT NULL DEFAULT '[]',
			error TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)
	`, s.table))
	if err != nil {
		return fmt.Errorf("error creating results table: %w", err)
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS "idx_%s_run_id" ON "%s" (run_id, question_index)`,
		s.table, s.table))
	if err != nil {
		return fmt.Errorf("error creating index: %w", err)
	}

	return nil
}

// Close the database connection.
func (s *SQLiteStore) Close(context.Context) error {
	return s.db.Close()
}

// sqliteTimeLayout is fixed width, so that created_at values sort
// chronologically as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
