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

package verify

import (
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/nlpodyssey/cardpilot-verify/tracing"
)

var verifyLogger atomic.Pointer[slog.Logger]

func init() {
	ResetLogger()
}

// Logger returns the logger for diagnostics about a verification run:
// request parameters, response IDs, run log and preflight failures.
// Diagnostics never go to stdout, which only carries the report.
func Logger() *slog.Logger {
	return verifyLogger.Load()
}

// SetLogger replaces the diagnostics logger, for example to capture it in
// tests. Tracing diagnostics go to the same logger. A nil value is ignored.
func SetLogger(l *slog.Logger) {
	if l != nil {
		verifyLogger.Store(l)
		tracing.SetLogger(l)
	}
}

// ResetLogger restores the stderr logger that only reports warnings and
// errors, such as a run log that could not be written.
func ResetLogger() {
	SetLogger(newStderrLogger(slog.LevelWarn))
}

// EnableDebugLogging is what the -debug flag turns on: each question's
// request and the per-run token usage are logged to stderr.
func EnableDebugLogging() {
	SetLogger(newStderrLogger(slog.LevelDebug))
}

func newStderrLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
