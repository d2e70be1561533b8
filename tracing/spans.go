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

package tracing

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// SpanError is attached to a span whose operation failed.
type SpanError struct {
	Message string
	Data    map[string]any
}

func (err SpanError) Error() string { return cmp.Or(err.Message, "span error") }

func (err SpanError) Export() map[string]any {
	return map[string]any{
		"message": err.Message,
		"data":    err.Data,
	}
}

type Span interface {
	// Run starts the span as the current span of a derived context, calls
	// fn with that context and finishes the span when fn returns.
	Run(context.Context, func(context.Context, Span) error) error

	Start(ctx context.Context, markAsCurrent bool) error
	Finish(ctx context.Context, resetCurrent bool) error

	TraceID() string
	SpanID() string
	ParentID() string
	SpanData() SpanData
	SetError(err SpanError)
	Error() *SpanError
	StartedAt() time.Time
	EndedAt() time.Time
	Export() map[string]any
}

// NoOpSpan is returned when tracing is disabled or no trace is active.
// Its SpanData can still be filled in by the caller.
type NoOpSpan struct {
	spanData SpanData
	prev     Span
}

func NewNoOpSpan(spanData SpanData) *NoOpSpan {
	return &NoOpSpan{spanData: spanData}
}

func (s *NoOpSpan) Run(ctx context.Context, fn func(context.Context, Span) error) error {
	ctx = ContextWithClonedOrNewScope(ctx)
	_ = s.Start(ctx, true)
	defer func() { _ = s.Finish(ctx, true) }()
	return fn(ctx, s)
}

func (s *NoOpSpan) Start(ctx context.Context, markAsCurrent bool) error {
	if markAsCurrent {
		s.prev = setCurrentSpan(ctx, s)
	}
	return nil
}

func (s *NoOpSpan) Finish(ctx context.Context, resetCurrent bool) error {
	if resetCurrent {
		setCurrentSpan(ctx, s.prev)
		s.prev = nil
	}
	return nil
}

func (s *NoOpSpan) TraceID() string        { return "no-op" }
func (s *NoOpSpan) SpanID() string         { return "no-op" }
func (s *NoOpSpan) ParentID() string       { return "" }
func (s *NoOpSpan) SpanData() SpanData     { return s.spanData }
func (s *NoOpSpan) SetError(SpanError)     {}
func (s *NoOpSpan) Error() *SpanError      { return nil }
func (s *NoOpSpan) StartedAt() time.Time   { return time.Time{} }
func (s *NoOpSpan) EndedAt() time.Time     { return time.Time{} }
func (s *NoOpSpan) Export() map[string]any { return nil }

// SpanImpl is a span that is reported to the registered processors.
type SpanImpl struct {
	traceID   string
	spanID    string
	parentID  string
	startedAt time.Time
	endedAt   time.Time
	error     atomic.Pointer[SpanError]
	prev      Span
	processor Processor
	spanData  SpanData
}

func NewSpanImpl(traceID, spanID, parentID string, processor Processor, spanData SpanData) *SpanImpl {
	return &SpanImpl{
		traceID:   traceID,
		spanID:    spanID,
		parentID:  parentID,
		processor: processor,
		spanData:  spanData,
	}
}

func (s *SpanImpl) Run(ctx context.Context, fn func(context.Context, Span) error) (err error) {
	ctx = ContextWithClonedOrNewScope(ctx)
	startErr := s.Start(ctx, true)
	defer func() {
		if e := s.Finish(ctx, true); e != nil {
			err = errors.Join(err, e)
		}
	}()
	return errors.Join(fn(ctx, s), startErr)
}

func (s *SpanImpl) Start(ctx context.Context, markAsCurrent bool) error {
	if !s.startedAt.IsZero() {
		Logger().Warn("Span already started", slog.String("span_id", s.spanID))
		return nil
	}
	s.startedAt = time.Now().UTC()
	if markAsCurrent {
		s.prev = setCurrentSpan(ctx, s)
	}
	return s.processor.OnSpanStart(ctx, s)
}

func (s *SpanImpl) Finish(ctx context.Context, resetCurrent bool) error {
	if !s.endedAt.IsZero() {
		Logger().Warn("Span already finished", slog.String("span_id", s.spanID))
		return nil
	}
	s.endedAt = time.Now().UTC()
	if resetCurrent {
		setCurrentSpan(ctx, s.prev)
		s.prev = nil
	}
	return s.processor.OnSpanEnd(ctx, s)
}

func (s *SpanImpl) TraceID() string        { return s.traceID }
func (s *SpanImpl) SpanID() string         { return s.spanID }
func (s *SpanImpl) ParentID() string       { return s.parentID }
func (s *SpanImpl) SpanData() SpanData     { return s.spanData }
func (s *SpanImpl) SetError(err SpanError) { s.error.Store(&err) }
func (s *SpanImpl) Error() *SpanError      { return s.error.Load() }
func (s *SpanImpl) StartedAt() time.Time   { return s.startedAt }
func (s *SpanImpl) EndedAt() time.Time     { return s.endedAt }

func (s *SpanImpl) Export() map[string]any {
	var spanData map[string]any
	if s.spanData != nil {
		spanData = s.spanData.Export()
	}
	var exportedError map[string]any
	if err := s.error.Load(); err != nil {
		exportedError = err.Export()
	}
	var parentID any
	if s.parentID != "" {
		parentID = s.parentID
	}
	return map[string]any{
		"object":     "trace.span",
		"id":         s.spanID,
		"trace_id":   s.traceID,
		"parent_id":  parentID,
		"started_at": formatTime(s.startedAt),
		"ended_at":   formatTime(s.endedAt),
		"span_data":  spanData,
		"error":      exportedError,
	}
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}
