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
	"errors"
)

// A Trace is the root of a verification run.
type Trace interface {
	// Run starts the trace as the current trace of a derived context, calls
	// fn with that context and finishes the trace when fn returns. fn is
	// called even if a processor fails; processor errors are joined to the
	// returned error.
	Run(context.Context, func(context.Context, Trace) error) error

	// Start the trace. If markAsCurrent is true, the trace becomes the
	// current trace of the scope of ctx.
	Start(ctx context.Context, markAsCurrent bool) error

	// Finish the trace. If resetCurrent is true, the previous trace is
	// restored as the current one.
	Finish(ctx context.Context, resetCurrent bool) error

	TraceID() string
	Name() string
	Export() map[string]any
}

// NoOpTrace is returned when tracing is disabled. Spans created under it
// are no-op too.
type NoOpTrace struct {
	prev Trace
}

func (t *NoOpTrace) Run(ctx context.Context, fn func(context.Context, Trace) error) error {
	ctx = ContextWithClonedOrNewScope(ctx)
	_ = t.Start(ctx, true)
	defer func() { _ = t.Finish(ctx, true) }()
	return fn(ctx, t)
}

func (t *NoOpTrace) Start(ctx context.Context, markAsCurrent bool) error {
	if markAsCurrent {
		t.prev = setCurrentTrace(ctx, t)
	}
	return nil
}

func (t *NoOpTrace) Finish(ctx context.Context, resetCurrent bool) error {
	if resetCurrent {
		setCurrentTrace(ctx, t.prev)
		t.prev = nil
	}
	return nil
}

func (t *NoOpTrace) TraceID() string        { return "no-op" }
func (t *NoOpTrace) Name() string           { return "no-op" }
func (t *NoOpTrace) Export() map[string]any { return nil }

// TraceImpl is a trace that is reported to the registered processors.
type TraceImpl struct {
	name      string
	traceID   string
	GroupID   string
	Metadata  map[string]any
	processor Processor
	prev      Trace
	started   bool
	finished  bool
}

func NewTraceImpl(name, traceID, groupID string, metadata map[string]any, processor Processor) *TraceImpl {
	return &TraceImpl{
		name:      name,
		traceID:   traceID,
		GroupID:   groupID,
		Metadata:  metadata,
		processor: processor,
	}
}

func (t *TraceImpl) Run(ctx context.Context, fn func(context.Context, Trace) error) (err error) {
	ctx = ContextWithClonedOrNewScope(ctx)
	startErr := t.Start(ctx, true)
	defer func() {
		if e := t.Finish(ctx, true); e != nil {
			err = errors.Join(err, e)
		}
	}()
	return errors.Join(fn(ctx, t), startErr)
}

func (t *TraceImpl) Start(ctx context.Context, markAsCurrent bool) error {
	if t.started {
		return nil
	}
	t.started = true
	if markAsCurrent {
		t.prev = setCurrentTrace(ctx, t)
	}
	return t.processor.OnTraceStart(ctx, t)
}

func (t *TraceImpl) Finish(ctx context.Context, resetCurrent bool) error {
	if !t.started || t.finished {
		return nil
	}
	t.finished = true
	if resetCurrent {
		setCurrentTrace(ctx, t.prev)
		t.prev = nil
	}
	return t.processor.OnTraceEnd(ctx, t)
}

func (t *TraceImpl) TraceID() string { return t.traceID }
func (t *TraceImpl) Name() string    { return t.name }

func (t *TraceImpl) Export() map[string]any {
	var groupID any
	if t.GroupID != "" {
		groupID = t.GroupID
	}
	return map[string]any{
		"object":        "trace",
		"id":            t.traceID,
		"workflow_name": t.name,
		"group_id":      groupID,
		"metadata":      t.Metadata,
	}
}
