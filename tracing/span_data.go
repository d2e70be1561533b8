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
	"github.com/nlpodyssey/cardpilot-verify/usage"
)

// SpanData is the payload of a span.
type SpanData interface {
	Type() string
	Export() map[string]any
}

// ResponseSpanData describes one Responses API request, made for one
// question. The response fields are filled in once it arrives.
type ResponseSpanData struct {
	// Position of the question in the run.
	Index int
	// The question, sent as the request input.
	Question string
	// Requested model.
	Model string
	// Label of the hosted MCP tool attached to the request.
	ServerLabel string
	ServerURL   string

	ResponseID string
	OutputText string
	Usage      usage.Usage
}

func (ResponseSpanData) Type() string { return "response" }

func (sd ResponseSpanData) Export() map[string]any {
	var responseID any
	if sd.ResponseID != "" {
		responseID = sd.ResponseID
	}
	return map[string]any{
		"type":         sd.Type(),
		"index":        sd.Index,
		"input":        sd.Question,
		"model":        sd.Model,
		"server_label": sd.ServerLabel,
		"server_url":   sd.ServerURL,
		"response_id":  responseID,
		"output":       sd.OutputText,
		"usage": map[string]any{
			"requests":      sd.Usage.Requests,
			"input_tokens":  sd.Usage.InputTokens,
			"output_tokens": sd.Usage.OutputTokens,
			"total_tokens":  sd.Usage.TotalTokens,
		},
	}
}

// MCPCallSpanData describes a hosted MCP tool call reported in a response.
// The call happened on the Responses API side, so the span only records it.
type MCPCallSpanData struct {
	Server    string
	Name      string
	Arguments string
	Output    string
	Error     string
}

func (MCPCallSpanData) Type() string { return "mcp_call" }

func (sd MCPCallSpanData) Export() map[string]any {
	var output, callErr any
	if sd.Output != "" {
		output = sd.Output
	}
	if sd.Error != "" {
		callErr = sd.Error
	}
	return map[string]any{
		"type":      sd.Type(),
		"server":    sd.Server,
		"name":      sd.Name,
		"arguments": sd.Arguments,
		"output":    output,
		"error":     callErr,
	}
}

// MCPListToolsSpanData describes a direct tools/list request to the MCP server.
type MCPListToolsSpanData struct {
	Server string
	// Names of the listed tools.
	Result []string
}

func (MCPListToolsSpanData) Type() string { return "mcp_tools" }

func (sd MCPListToolsSpanData) Export() map[string]any {
	return map[string]any{
		"type":   sd.Type(),
		"server": sd.Server,
		"result": sd.Result,
	}
}
