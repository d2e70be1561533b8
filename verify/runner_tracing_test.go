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

package verify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nlpodyssey/cardpilot-verify/cardpilottesting"
	"github.com/nlpodyssey/cardpilot-verify/tracing"
	"github.com/nlpodyssey/cardpilot-verify/tracing/tracingtesting"
	"github.com/nlpodyssey/cardpilot-verify/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_Tracing(t *testing.T) {
	p := tracingtesting.Setup(t)

	client := cardpilottesting.NewFakeClient(
		successTurn("resp_1", "Here are the top cards.",
			cardpilottesting.MCPCallItem("get-cards", `{"limit":3}`, ""),
			cardpilottesting.MCPCallItem("get-card-details", `{"cardId":"x"}`, "Error fetching card details: 404"),
		),
		cardpilottesting.FakeTurn{Error: errors.New("connection reset")},
	)
	r := newTestRunner(t, verify.RunnerParams{Client: client})

	summary, err := r.Run(t.Context(), []string{"Top cards?", "Details for x?"})
	require.NoError(t, err)

	traces := p.Traces()
	require.Len(t, traces, 1)
	assert.Equal(t, verify.TraceWorkflowName, traces[0].Name())
	assert.Equal(t, summary.RunID, traces[0].Export()["group_id"])

	responses := p.SpansOfType("response")
	require.Len(t, responses, 2)

	first := responses[0].SpanData().(*tracing.ResponseSpanData)
	assert.Equal(t, "Top cards?", first.Question)
	assert.Equal(t, "resp_1", first.ResponseID)
	assert.Equal(t, "gpt-4o", first.Model)
	assert.Equal(t, "cardpilot_local", first.ServerLabel)
	assert.Equal(t, uint64(1), first.Usage.Requests)
	assert.Nil(t, responses[0].Error())

	second := responses[1].SpanData().(*tracing.ResponseSpanData)
	assert.Equal(t, 1, second.Index)
	assert.Empty(t, second.ResponseID)
	require.NotNil(t, responses[1].Error())
	assert.Equal(t, "connection reset", responses[1].Error().Data["error"])

	calls := p.SpansOfType("mcp_call")
	require.Len(t, calls, 2)
	for _, call := range calls {
		assert.Equal(t, responses[0].SpanID(), call.ParentID())
		assert.Equal(t, traces[0].TraceID(), call.TraceID())
	}
	assert.Nil(t, calls[0].Error())
	require.NotNil(t, calls[1].Error())
	assert.Equal(t, "get-card-details", calls[1].SpanData().(*tracing.MCPCallSpanData).Name)

	events := p.Events()
	assert.Equal(t, tracingtesting.TraceStart, events[0])
	assert.Equal(t, tracingtesting.TraceEnd, events[len(events)-1])
}

func TestRunner_TracingPreflight(t *testing.T) {
	t.Run("listed tools", func(t *testing.T) {
		p := tracingtesting.Setup(t)

		r := newTestRunner(t, verify.RunnerParams{
			Client: cardpilottesting.NewFakeClient(),
			Preflight: toolListerFunc(func(context.Context) (map[string]any, error) {
				return map[string]any{"get-cards": nil, "get-card-details": cardDetailsSchema}, nil
			}),
		})
		_, err := r.Run(t.Context(), []string{"q"})
		require.NoError(t, err)

		spans := p.SpansOfType("mcp_tools")
		require.Len(t, spans, 1)
		data := spans[0].SpanData().(*tracing.MCPListToolsSpanData)
		assert.Equal(t, testServerURL, data.Server)
		assert.Equal(t, []string{"get-card-details", "get-cards"}, data.Result)
		assert.Nil(t, spans[0].Error())
		assert.Empty(t, spans[0].ParentID())
	})

	t.Run("unreachable server", func(t *testing.T) {
		p := tracingtesting.Setup(t)

		r := newTestRunner(t, verify.RunnerParams{
			Client: cardpilottesting.NewFakeClient(),
			Policy: verify.PolicyFailFast,
			Preflight: toolListerFunc(func(context.Context) (map[string]any, error) {
				return nil, verify.ErrServerUnreachable
			}),
		})
		_, err := r.Run(t.Context(), []string{"q"})
		require.ErrorIs(t, err, verify.ErrServerUnreachable)

		spans := p.SpansOfType("mcp_tools")
		require.Len(t, spans, 1)
		require.NotNil(t, spans[0].Error())
		assert.Empty(t, p.SpansOfType("response"))
		assert.Len(t, p.Traces(), 1)
	})
}

func TestRunner_NoTraceWithoutCredentials(t *testing.T) {
	p := tracingtesting.Setup(t)
	t.Setenv("OPENAI_API_KEY", "")

	server := cardpilottesting.NewResponsesServer(t, okHandler)
	r := newTestRunner(t, verify.RunnerParams{Client: server.Client("")})

	_, err := r.Run(t.Context(), []string{"q"})
	require.ErrorIs(t, err, verify.ErrMissingAPIKey)
	assert.Empty(t, p.Events())
}

type failingTraceProcessor struct {
	*tracingtesting.SpanProcessorForTests
}

func (failingTraceProcessor) OnTraceStart(context.Context, tracing.Trace) error {
	return errors.New("trace export failed")
}

func (failingTraceProcessor) OnSpanEnd(context.Context, tracing.Span) error {
	return errors.New("span export failed")
}

func TestRunner_TraceExportFailuresDoNotAffectTheRun(t *testing.T) {
	tracing.SetTraceProcessors([]tracing.Processor{failingTraceProcessor{tracingtesting.NewSpanProcessorForTests()}})
	t.Cleanup(func() { tracing.SetTraceProcessors(nil) })

	var preflightCalls int
	r := newTestRunner(t, verify.RunnerParams{
		Client: cardpilottesting.NewFakeClient(successTurn("resp_1", "ok")),
		Policy: verify.PolicyFailFast,
		Preflight: toolListerFunc(func(context.Context) (map[string]any, error) {
			preflightCalls++
			return map[string]any{"get-cards": nil}, nil
		}),
	})

	summary, err := r.Run(t.Context(), []string{"q"})
	require.NoError(t, err)
	assert.True(t, summary.Completed)
	assert.Equal(t, 1, preflightCalls)
	assert.Equal(t, "resp_1", summary.Results[0].ResponseID)
}
