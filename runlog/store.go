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

// Package runlog keeps a history of verification runs, one record per
// question, in SQLite or PostgreSQL.
package runlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nlpodyssey/cardpilot-verify/verify"
)

const (
	DefaultTable = "verify_results"

	sqlitePrefix = "sqlite:"
)

var ErrUnsupportedDSN = errors.New("unsupported run log DSN: expected sqlite:<path> or postgres://...")

// Record is a stored question result.
type Record struct {
	RunID      string
	Index      int
	Question   string
	ResponseID string
	OutputText string
	ToolCalls  []verify.MCPCall
	Error      string
	CreatedAt  time.Time
}

// RunInfo summarizes a recorded run.
type RunInfo struct {
	RunID     string
	Questions int
	Failed    int
	StartedAt time.Time
}

// Store is a run history backend.
type Store interface {
	verify.Recorder

	// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
	ListRuns(ctx context.Context, limit int) ([]RunInfo, error)

	// GetResults returns the records of a run in question order.
	GetResults(ctx context.Context, runID string) ([]Record, error)

	Close(ctx context.Context) error
}

func NewRecord(runID string, result verify.QuestionResult) Record {
	r := Record{
		RunID:      runID,
		Index:      result.Index,
		Question:   result.Question,
		ResponseID: result.ResponseID,
		OutputText: result.OutputText,
		ToolCalls:  result.ToolCalls(),
		CreatedAt:  time.Now().UTC(),
	}
	if result.Err != nil {
		r.Error = result.Err.Error()
	}
	return r
}

// Open opens the store described by dsn: "sqlite:<path>" (an empty path
// means in-memory) or a "postgres://" / "postgresql://" connection string.
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case strings.HasPrefix(dsn, sqlitePrefix):
		return NewSQLiteStore(ctx, SQLiteStoreParams{
			DBDataSourceName: strings.TrimPrefix(dsn, sqlitePrefix),
		})
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return NewPostgresStore(ctx, PostgresStoreParams{ConnectionString: dsn})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDSN, dsn)
	}
}

func marshalToolCalls(calls []verify.MCPCall) (string, error) {
	if calls == nil {
		calls = []verify.MCPCall{}
	}
	b, err := json.Marshal(calls)
	if err != nil {
		return "", fmt.Errorf("error JSON marshaling tool calls: %w", err)
	}
	return string(b), nil
}

func unmarshalToolCalls(data string) []verify.MCPCall {
	var calls []verify.MCPCall
	if err := json.Unmarshal([]byte(data), &calls); err != nil {
		verify.Logger().Warn("Skipping corrupted tool calls in run log", "error", err)
		return nil
	}
	if len(calls) == 0 {
		return nil
	}
	return calls
}
