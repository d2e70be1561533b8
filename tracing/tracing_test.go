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

package tracing_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nlpodyssey/cardpilot-verify/tracing"
	"github.com/nlpodyssey/cardpilot-verify/tracing/tracingtesting"
	"github.com/nlpodyssey/cardpilot-verify/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrace_NestedSpans(t *testing.T) {
	p := tracingtesting.Setup(t)

	err := tracing.RunTrace(t.Context(), tracing.TraceParams{
		WorkflowName: "cardpilot-verify",
		GroupID:      "run-1",
		Metadata:     map[string]any{"model": "gpt-4o"},
	}, func(ctx context.Context, trace tracing.Trace) error {
		assert.Same(t, trace, tracing.GetCurrentTrace(ctx))

		data := &tracing.ResponseSpanData{Question: "Top cards?", Model: "gpt-4o"}
		return tracing.ResponseSpan(ctx, data, func(ctx context.Context, span tracing.Span) error {
			assert.Same(t, span, tracing.GetCurrentSpan(ctx))
			data.ResponseID = "resp_1"
			data.Usage = usage.Usage{Requests: 1, TotalTokens: 42}

			call := tracing.NewMCPCallSpan(ctx, &tracing.MCPCallSpanData{Name: "get-cards", Error: "boom"})
			require.NoError(t, call.Start(ctx, false))
			call.SetError(tracing.SpanError{Message: "boom"})
			return call.Finish(ctx, false)
		})
	})
	require.NoError(t, err)

	assert.Equal(t, []tracingtesting.SpanProcessorEvent{
		tracingtesting.TraceStart,
		tracingtesting.SpanStart,
		tracingtesting.SpanStart,
		tracingtesting.SpanEnd,
		tracingtesting.SpanEnd,
		tracingtesting.TraceEnd,
	}, p.Events())

	traces := p.Traces()
	require.Len(t, traces, 1)
	exported := traces[0].Export()
	assert.Equal(t, "cardpilot-verify", exported["workflow_name"])
	assert.Equal(t, "run-1", exported["group_id"])
	assert.True(t, strings.HasPrefix(traces[0].TraceID(), "trace_"))

	responses := p.SpansOfType("response")
	require.Len(t, responses, 1)
	response := responses[0]
	assert.Equal(t, traces[0].TraceID(), response.TraceID())
	assert.Empty(t, response.ParentID())
	assert.True(t, strings.HasPrefix(response.SpanID(), "span_"))

	spanData := response.Export()["span_data"].(map[string]any)
	assert.Equal(t, "resp_1", spanData["response_id"])
	assert.Equal(t, uint64(42), spanData["usage"].(map[string]any)["total_tokens"])

	calls := p.SpansOfType("mcp_call")
	require.Len(t, calls, 1)
	assert.Equal(t, response.SpanID(), calls[0].ParentID())
	require.NotNil(t, calls[0].Error())
	assert.Equal(t, "boom", calls[0].Error().Message)
	assert.False(t, calls[0].EndedAt().Before(calls[0].StartedAt()))
}

func TestTrace_RunRestoresCurrentSpan(t *testing.T) {
	tracingtesting.Setup(t)

	err := tracing.RunTrace(t.Context(), tracing.TraceParams{WorkflowName: "w"}, func(ctx context.Context, _ tracing.Trace) error {
		assert.Nil(t, tracing.GetCurrentSpan(ctx))
		err := tracing.MCPToolsSpan(ctx, &tracing.MCPListToolsSpanData{Server: "s"}, func(context.Context, tracing.Span) error {
			return nil
		})
		assert.Nil(t, tracing.GetCurrentSpan(ctx))
		return err
	})
	require.NoError(t, err)
	assert.Nil(t, tracing.GetCurrentTrace(t.Context()))
}

func TestTrace_NoOp(t *testing.T) {
	t.Run("without processors", func(t *testing.T) {
		tracing.SetTraceProcessors(nil)
		trace := tracing.NewTrace(t.Context(), tracing.TraceParams{WorkflowName: "w"})
		assert.IsType(t, &tracing.NoOpTrace{}, trace)
	})

	t.Run("disabled", func(t *testing.T) {
		p := tracingtesting.Setup(t)
		tracing.SetTracingDisabled(true)
		t.Cleanup(func() { tracing.SetTracingDisabled(false) })

		err := tracing.RunTrace(t.Context(), tracing.TraceParams{WorkflowName: "w"}, func(ctx context.Context, trace tracing.Trace) error {
			assert.IsType(t, &tracing.NoOpTrace{}, trace)
			span := tracing.NewResponseSpan(ctx, &tracing.ResponseSpanData{})
			assert.IsType(t, &tracing.NoOpSpan{}, span)
			return nil
		})
		require.NoError(t, err)
		assert.Empty(t, p.Events())
	})

	t.Run("span without a trace", func(t *testing.T) {
		p := tracingtesting.Setup(t)
		data := &tracing.MCPListToolsSpanData{Server: "s"}
		span := tracing.NewMCPToolsSpan(t.Context(), data)
		assert.IsType(t, &tracing.NoOpSpan{}, span)
		assert.Same(t, data, span.SpanData())
		assert.Empty(t, p.Events())
	})
}

type failingProcessor struct {
	tracingtesting.SpanProcessorForTests
	err error
}

func (p *failingProcessor) OnTraceEnd(context.Context, tracing.Trace) error { return p.err }

func TestTrace_ProcessorErrorIsReturned(t *testing.T) {
	want := errors.New("export failed")
	tracing.SetTraceProcessors([]tracing.Processor{&failingProcessor{err: want}})
	t.Cleanup(func() { tracing.SetTraceProcessors(nil) })

	err := tracing.RunTrace(t.Context(), tracing.TraceParams{WorkflowName: "w"}, func(context.Context, tracing.Trace) error {
		return nil
	})
	assert.ErrorIs(t, err, want)
}
