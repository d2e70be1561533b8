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
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// EnvDisableTracing disables tracing when set to a true value.
const EnvDisableTracing = "CARDPILOT_DISABLE_TRACING"

// multiProcessor forwards every call to the registered processors, in
// order of registration.
type multiProcessor struct {
	mu         sync.RWMutex
	processors []Processor
}

func (p *multiProcessor) add(processor Processor) {
	p.mu.Lock()
	p.processors = append(p.processors, processor)
	p.mu.Unlock()
}

func (p *multiProcessor) set(processors []Processor) {
	p.mu.Lock()
	p.processors = slices.Clone(processors)
	p.mu.Unlock()
}

func (p *multiProcessor) len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.processors)
}

func (p *multiProcessor) each(fn func(Processor) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	errs := make([]error, len(p.processors))
	for i, processor := range p.processors {
		errs[i] = fn(processor)
	}
	return errors.Join(errs...)
}

func (p *multiProcessor) OnTraceStart(ctx context.Context, t Trace) error {
	return p.each(func(pr Processor) error { return pr.OnTraceStart(ctx, t) })
}

func (p *multiProcessor) OnTraceEnd(ctx context.Context, t Trace) error {
	return p.each(func(pr Processor) error { return pr.OnTraceEnd(ctx, t) })
}

func (p *multiProcessor) OnSpanStart(ctx context.Context, s Span) error {
	return p.each(func(pr Processor) error { return pr.OnSpanStart(ctx, s) })
}

func (p *multiProcessor) OnSpanEnd(ctx context.Context, s Span) error {
	return p.each(func(pr Processor) error { return pr.OnSpanEnd(ctx, s) })
}

func (p *multiProcessor) Shutdown(ctx context.Context) error {
	return p.each(func(pr Processor) error { return pr.Shutdown(ctx) })
}

func (p *multiProcessor) ForceFlush(ctx context.Context) error {
	return p.each(func(pr Processor) error { return pr.ForceFlush(ctx) })
}

// TraceProvider creates traces and spans.
type TraceProvider interface {
	RegisterProcessor(Processor)
	SetProcessors([]Processor)
	SetDisabled(bool)

	CurrentTrace(context.Context) Trace
	CurrentSpan(context.Context) Span

	CreateTrace(name, traceID, groupID string, metadata map[string]any) Trace

	// CreateSpan creates a span under parent, which is a Trace, a Span, or
	// nil to use the current span or trace of ctx.
	CreateSpan(ctx context.Context, spanData SpanData, parent any) Span

	// Shutdown shuts down the registered processors.
	Shutdown(context.Context)
}

type DefaultTraceProvider struct {
	processors multiProcessor
	disabled   atomic.Bool
}

func NewDefaultTraceProvider() *DefaultTraceProvider {
	p := new(DefaultTraceProvider)
	if v, err := strconv.ParseBool(os.Getenv(EnvDisableTracing)); err == nil {
		p.disabled.Store(v)
	}
	return p
}

func (p *DefaultTraceProvider) RegisterProcessor(processor Processor) {
	p.processors.add(processor)
}

func (p *DefaultTraceProvider) SetProcessors(processors []Processor) {
	p.processors.set(processors)
}

func (p *DefaultTraceProvider) SetDisabled(disabled bool) {
	p.disabled.Store(disabled)
}

func (p *DefaultTraceProvider) CurrentTrace(ctx context.Context) Trace { return currentTrace(ctx) }
func (p *DefaultTraceProvider) CurrentSpan(ctx context.Context) Span   { return currentSpan(ctx) }

// Spans and traces are no-op when tracing is disabled or when no processor
// would receive them.
func (p *DefaultTraceProvider) inactive() bool {
	return p.disabled.Load() || p.processors.len() == 0
}

func (p *DefaultTraceProvider) CreateTrace(name, traceID, groupID string, metadata map[string]any) Trace {
	if p.inactive() {
		return &NoOpTrace{}
	}
	if traceID == "" {
		traceID = GenTraceID()
	}
	Logger().Debug("Creating trace", slog.String("name", name), slog.String("trace_id", traceID))
	return NewTraceImpl(name, traceID, groupID, metadata, &p.processors)
}

func (p *DefaultTraceProvider) CreateSpan(ctx context.Context, spanData SpanData, parent any) Span {
	if p.inactive() {
		return NewNoOpSpan(spanData)
	}

	var traceID, parentID string
	switch parent := parent.(type) {
	case nil:
		t := currentTrace(ctx)
		if t == nil {
			Logger().Error("No active trace, returning a no-op span", slog.String("type", spanData.Type()))
			return NewNoOpSpan(spanData)
		}
		if _, ok := t.(*NoOpTrace); ok {
			return NewNoOpSpan(spanData)
		}
		if s := currentSpan(ctx); s != nil {
			if _, ok := s.(*NoOpSpan); ok {
				return NewNoOpSpan(spanData)
			}
			parentID = s.SpanID()
		}
		traceID = t.TraceID()
	case *NoOpTrace, *NoOpSpan:
		return NewNoOpSpan(spanData)
	case Trace:
		traceID = parent.TraceID()
	case Span:
		traceID = parent.TraceID()
		parentID = parent.SpanID()
	default:
		Logger().Error(fmt.Sprintf("Unexpected parent type %T, returning a no-op span", parent))
		return NewNoOpSpan(spanData)
	}

	return NewSpanImpl(traceID, GenSpanID(), parentID, &p.processors, spanData)
}

func (p *DefaultTraceProvider) Shutdown(ctx context.Context) {
	if err := p.processors.Shutdown(ctx); err != nil {
		Logger().Error("Error shutting down trace processors", slog.String("error", err.Error()))
	}
}

// GenTraceID returns a new trace ID, "trace_" followed by 32 hex digits.
func GenTraceID() string {
	u := uuid.New()
	return "trace_" + hex.EncodeToString(u[:])
}

// GenSpanID returns a new span ID, "span_" followed by 24 hex digits.
func GenSpanID() string {
	u := uuid.New()
	return "span_" + hex.EncodeToString(u[:])[:24]
}
