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

// Package traceloop exports verification traces to Traceloop: each run
// becomes a workflow, each span a task, and each question an LLM prompt
// with its completion and token usage.
package traceloop

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nlpodyssey/cardpilot-verify/tracing"
	sdk "github.com/traceloop/go-openllmetry/traceloop-sdk"
)

const DefaultBaseURL = "api.traceloop.com"

// TracingProcessor implements tracing.Processor.
type TracingProcessor struct {
	client *sdk.Traceloop

	mu        sync.Mutex
	workflows map[string]*sdk.Workflow
	tasks     map[string]*sdk.Task
	llmSpans  map[string]*sdk.LLMSpan
}

type ProcessorParams struct {
	// Required Traceloop API key.
	APIKey string
	// Optional base URL, defaults to DefaultBaseURL.
	BaseURL string
}

func NewTracingProcessor(ctx context.Context, params ProcessorParams) (*TracingProcessor, error) {
	if params.APIKey == "" {
		return nil, fmt.Errorf("traceloop: API key is required")
	}
	client, err := sdk.NewClient(ctx, sdk.Config{
		BaseURL: cmp.Or(params.BaseURL, DefaultBaseURL),
		APIKey:  params.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Traceloop client: %w", err)
	}
	return newTracingProcessor(client), nil
}

func newTracingProcessor(client *sdk.Traceloop) *TracingProcessor {
	return &TracingProcessor{
		client:    client,
		workflows: make(map[string]*sdk.Workflow),
		tasks:     make(map[string]*sdk.Task),
		llmSpans:  make(map[string]*sdk.LLMSpan),
	}
}

func (p *TracingProcessor) OnTraceStart(ctx context.Context, trace tracing.Trace) error {
	if p.client == nil {
		return nil
	}
	workflow := p.client.NewWorkflow(ctx, workflowAttributes(trace))

	p.mu.Lock()
	p.workflows[trace.TraceID()] = workflow
	p.mu.Unlock()
	return nil
}

func (p *TracingProcessor) OnTraceEnd(_ context.Context, trace tracing.Trace) error {
	p.mu.Lock()
	workflow, ok := p.workflows[trace.TraceID()]
	delete(p.workflows, trace.TraceID())
	p.mu.Unlock()

	if ok && workflow != nil {
		workflow.End()
	}
	return nil
}

func (p *TracingProcessor) OnSpanStart(_ context.Context, span tracing.Span) error {
	p.mu.Lock()
	workflow := p.workflows[span.TraceID()]
	p.mu.Unlock()
	if workflow == nil {
		tracing.Logger().Debug("No Traceloop workflow for span, skipping", slog.String("span_id", span.SpanID()))
		return nil
	}

	task := workflow.NewTask(taskName(span.SpanData()))

	var llmSpan *sdk.LLMSpan
	if prompt, ok := promptOf(span.SpanData()); ok {
		s, err := task.LogPrompt(prompt)
		if err != nil {
			return fmt.Errorf("traceloop: failed to log prompt: %w", err)
		}
		llmSpan = &s
	}

	p.mu.Lock()
	p.tasks[span.SpanID()] = task
	if llmSpan != nil {
		p.llmSpans[span.SpanID()] = llmSpan
	}
	p.mu.Unlock()
	return nil
}

func (p *TracingProcessor) OnSpanEnd(ctx context.Context, span tracing.Span) error {
	p.mu.Lock()
	task := p.tasks[span.SpanID()]
	llmSpan := p.llmSpans[span.SpanID()]
	delete(p.tasks, span.SpanID())
	delete(p.llmSpans, span.SpanID())
	p.mu.Unlock()

	if llmSpan != nil {
		if data, ok := span.SpanData().(*tracing.ResponseSpanData); ok {
			llmSpan.LogCompletion(ctx, completionOf(data), usageOf(data))
		}
	}
	if task != nil {
		task.End()
	}
	return nil
}

func (p *TracingProcessor) Shutdown(ctx context.Context) error {
	if p.client != nil {
		p.client.Shutdown(ctx)
	}
	return nil
}

// ForceFlush is a no-op: the Traceloop SDK flushes on its own schedule.
func (p *TracingProcessor) ForceFlush(context.Context) error {
	return nil
}

func workflowAttributes(trace tracing.Trace) sdk.WorkflowAttributes {
	attrs := sdk.WorkflowAttributes{
		Name:                  cmp.Or(trace.Name(), "cardpilot-verify"),
		AssociationProperties: make(map[string]string),
	}
	exported := trace.Export()
	if groupID, ok := exported["group_id"].(string); ok {
		attrs.AssociationProperties["run_id"] = groupID
	}
	if metadata, ok := exported["metadata"].(map[string]any); ok {
		for k, v := range metadata {
			attrs.AssociationProperties[k] = fmt.Sprint(v)
		}
	}
	return attrs
}

func taskName(data tracing.SpanData) string {
	switch data := data.(type) {
	case nil:
		return "unknown_task"
	case *tracing.ResponseSpanData:
		return fmt.Sprintf("question_%d", data.Index+1)
	case *tracing.MCPCallSpanData:
		return "mcp_call_" + data.Name
	case *tracing.MCPListToolsSpanData:
		return "mcp_list_tools"
	default:
		return data.Type()
	}
}

func promptOf(data tracing.SpanData) (sdk.Prompt, bool) {
	d, ok := data.(*tracing.ResponseSpanData)
	if !ok {
		return sdk.Prompt{}, false
	}
	return sdk.Prompt{
		Vendor: "openai",
		Mode:   "chat",
		Model:  d.Model,
		Messages: []sdk.Message{
			{Index: 0, Role: "user", Content: d.Question},
		},
	}, true
}

func completionOf(data *tracing.ResponseSpanData) sdk.Completion {
	return sdk.Completion{
		Model: data.Model,
		Messages: []sdk.Message{
			{Index: 0, Role: "assistant", Content: data.OutputText},
		},
	}
}

func usageOf(data *tracing.ResponseSpanData) sdk.Usage {
	return sdk.Usage{
		PromptTokens:     int(data.Usage.InputTokens),
		CompletionTokens: int(data.Usage.OutputTokens),
		TotalTokens:      int(data.Usage.TotalTokens),
	}
}
