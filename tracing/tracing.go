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

// Package tracing records each verification run as a trace: one response
// span per question, one span per hosted MCP call observed in a response,
// and one span for the optional MCP preflight.
//
// Nothing is exported unless a Processor is registered.
package tracing

import (
	"log/slog"
	"sync/atomic"
)

var tracingLogger atomic.Pointer[slog.Logger]

// Logger returns the logger used to report tracing misuse and processor
// failures. It defaults to slog.Default().
func Logger() *slog.Logger {
	if l := tracingLogger.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// SetLogger sets the tracing logger. A nil value restores slog.Default().
func SetLogger(l *slog.Logger) {
	tracingLogger.Store(l)
}

// AddTraceProcessor registers a processor that receives every trace and span.
func AddTraceProcessor(p Processor) {
	GetTraceProvider().RegisterProcessor(p)
}

// SetTraceProcessors replaces the registered processors.
func SetTraceProcessors(processors []Processor) {
	GetTraceProvider().SetProcessors(processors)
}

// SetTracingDisabled sets whether tracing is globally disabled.
func SetTracingDisabled(disabled bool) {
	GetTraceProvider().SetDisabled(disabled)
}

func init() {
	SetTraceProvider(NewDefaultTraceProvider())
}
