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

package tracingtesting

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/nlpodyssey/cardpilot-verify/tracing"
)

type SpanProcessorEvent string

const (
	TraceStart SpanProcessorEvent = "trace_start"
	TraceEnd   SpanProcessorEvent = "trace_end"
	SpanStart  SpanProcessorEvent = "span_start"
	SpanEnd    SpanProcessorEvent = "span_end"
)

// SpanProcessorForTests keeps started traces and finished spans in memory.
type SpanProcessorForTests struct {
	mu     sync.RWMutex
	spans  []tracing.Span
	traces []tracing.Trace
	events []SpanProcessorEvent
}

func NewSpanProcessorForTests() *SpanProcessorForTests {
	return &SpanProcessorForTests{}
}

func (p *SpanProcessorForTests) OnTraceStart(_ context.Context, trace tracing.Trace) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.traces = append(p.traces, trace)
	p.events = append(p.events, TraceStart)
	return nil
}

func (p *SpanProcessorForTests) OnTraceEnd(context.Context, tracing.Trace) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, TraceEnd)
	return nil
}

func (p *SpanProcessorForTests) OnSpanStart(context.Context, tracing.Span) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, SpanStart)
	return nil
}

func (p *SpanProcessorForTests) OnSpanEnd(_ context.Context, span tracing.Span) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, SpanEnd)
	p.spans = append(p.spans, span)
	return nil
}

func (p *SpanProcessorForTests) Shutdown(context.Context) error   { return nil }
func (p *SpanProcessorForTests) ForceFlush(context.Context) error { return nil }

// Spans returns the finished spans sorted by start time.
func (p *SpanProcessorForTests) Spans() []tracing.Span {
	p.mu.RLock()
	defer p.mu.RUnlock()
	spans := slices.Clone(p.spans)
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].StartedAt().Before(spans[j].StartedAt())
	})
	return spans
}

func (p *SpanProcessorForTests) Traces() []tracing.Trace {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.traces)
}

func (p *SpanProcessorForTests) Events() []SpanProcessorEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.events)
}

func (p *SpanProcessorForTests) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spans = nil
	p.traces = nil
	p.events = nil
}

// SpansOfType returns the finished spans whose data has the given type.
func (p *SpanProcessorForTests) SpansOfType(spanType string) []tracing.Span {
	return slices.DeleteFunc(p.Spans(), func(s tracing.Span) bool {
		return s.SpanData() == nil || s.SpanData().Type() != spanType
	})
}
