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

import "context"

type TraceParams struct {
	// Name of the traced workflow.
	WorkflowName string

	// Optional trace ID. Generated with GenTraceID if empty.
	TraceID string

	// Optional identifier linking related traces. The runner uses the run ID.
	GroupID string

	// Optional metadata attached to the trace.
	Metadata map[string]any
}

// NewTrace creates a trace. It is not started: use Trace.Run, or call
// Trace.Start and Trace.Finish.
func NewTrace(ctx context.Context, params TraceParams) Trace {
	if GetCurrentTrace(ctx) != nil {
		Logger().Warn("Trace already exists. Creating a new trace, but this is probably a mistake.")
	}
	return GetTraceProvider().CreateTrace(params.WorkflowName, params.TraceID, params.GroupID, params.Metadata)
}

func RunTrace(ctx context.Context, params TraceParams, fn func(context.Context, Trace) error) error {
	return NewTrace(ctx, params).Run(ctx, fn)
}

// GetCurrentTrace returns the active trace of ctx, if any.
func GetCurrentTrace(ctx context.Context) Trace {
	return GetTraceProvider().CurrentTrace(ctx)
}

// GetCurrentSpan returns the active span of ctx, if any.
func GetCurrentSpan(ctx context.Context) Span {
	return GetTraceProvider().CurrentSpan(ctx)
}

// NewResponseSpan creates a span for the Responses request of one question,
// under the current span or trace of ctx.
func NewResponseSpan(ctx context.Context, data *ResponseSpanData) Span {
	return GetTraceProvider().CreateSpan(ctx, data, nil)
}

func ResponseSpan(ctx context.Context, data *ResponseSpanData, fn func(context.Context, Span) error) error {
	return NewResponseSpan(ctx, data).Run(ctx, fn)
}

// NewMCPCallSpan creates a span for a hosted MCP call found in a response.
func NewMCPCallSpan(ctx context.Context, data *MCPCallSpanData) Span {
	return GetTraceProvider().CreateSpan(ctx, data, nil)
}

// NewMCPToolsSpan creates a span for listing the tools of an MCP server.
func NewMCPToolsSpan(ctx context.Context, data *MCPListToolsSpanData) Span {
	return GetTraceProvider().CreateSpan(ctx, data, nil)
}

func MCPToolsSpan(ctx context.Context, data *MCPListToolsSpanData, fn func(context.Context, Span) error) error {
	return NewMCPToolsSpan(ctx, data).Run(ctx, fn)
}
