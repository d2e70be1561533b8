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

package traceloop

import (
	"testing"

	"github.com/nlpodyssey/cardpilot-verify/tracing"
	"github.com/nlpodyssey/cardpilot-verify/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdk "github.com/traceloop/go-openllmetry/traceloop-sdk"
)

func TestNewTracingProcessor_RequiresAPIKey(t *testing.T) {
	_, err := NewTracingProcessor(t.Context(), ProcessorParams{})
	assert.ErrorContains(t, err, "API key is required")
}

func TestTaskName(t *testing.T) {
	assert.Equal(t, "unknown_task", taskName(nil))
	assert.Equal(t, "question_3", taskName(&tracing.ResponseSpanData{Index: 2}))
	assert.Equal(t, "mcp_call_get-cards", taskName(&tracing.MCPCallSpanData{Name: "get-cards"}))
	assert.Equal(t, "mcp_list_tools", taskName(&tracing.MCPListToolsSpanData{}))
}

func TestResponseSpanConversion(t *testing.T) {
	data := &tracing.ResponseSpanData{
		Question:   "What are the top 3 recommended credit cards?",
		Model:      "gpt-4o",
		OutputText: "Here are the top cards.",
		Usage:      usage.Usage{Requests: 1, InputTokens: 120, OutputTokens: 30, TotalTokens: 150},
	}

	prompt, ok := promptOf(data)
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", prompt.Model)
	assert.Equal(t, []sdk.Message{{Index: 0, Role: "user", Content: data.Question}}, prompt.Messages)

	completion := completionOf(data)
	assert.Equal(t, "Here are the top cards.", completion.Messages[0].Content)
	assert.Equal(t, "assistant", completion.Messages[0].Role)

	assert.Equal(t, sdk.Usage{PromptTokens: 120, CompletionTokens: 30, TotalTokens: 150}, usageOf(data))

	_, ok = promptOf(&tracing.MCPCallSpanData{Name: "get-cards"})
	assert.False(t, ok)
}

func TestWorkflowAttributes(t *testing.T) {
	trace := tracing.NewTraceImpl("cardpilot-verify", "trace_1", "run-1", map[string]any{
		"model":     "gpt-4o",
		"questions": 7,
	}, nil)

	attrs := workflowAttributes(trace)
	assert.Equal(t, "cardpilot-verify", attrs.Name)
	assert.Equal(t, map[string]string{
		"run_id":    "run-1",
		"model":     "gpt-4o",
		"questions": "7",
	}, attrs.AssociationProperties)
}

func TestTracingProcessor_WithoutWorkflow(t *testing.T) {
	p := newTracingProcessor(nil)
	span := tracing.NewSpanImpl("trace_1", "span_1", "", p, &tracing.ResponseSpanData{})

	assert.NoError(t, p.OnTraceStart(t.Context(), tracing.NewTraceImpl("w", "trace_1", "", nil, p)))
	assert.NoError(t, p.OnSpanStart(t.Context(), span))
	assert.NoError(t, p.OnSpanEnd(t.Context(), span))
	assert.NoError(t, p.ForceFlush(t.Context()))
	assert.NoError(t, p.Shutdown(t.Context()))
	assert.Empty(t, p.tasks)
}
