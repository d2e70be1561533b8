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

package verify

import (
	"github.com/nlpodyssey/cardpilot-verify/usage"
	"github.com/openai/openai-go/v3/responses"
)

const (
	ItemTypeMCPCall      = "mcp_call"
	ItemTypeMCPListTools = "mcp_list_tools"
)

// QuestionResult is the outcome of a single question.
type QuestionResult struct {
	Index      int          `json:"index"`
	Question   string       `json:"question"`
	ResponseID string       `json:"response_id,omitempty"`
	OutputText string       `json:"output_text"`
	Items      []OutputItem `json:"items,omitempty"`
	Usage      usage.Usage  `json:"usage"`
	Err        error        `json:"-"`
}

// ToolCalls returns the mcp_call records of the result, in output order.
func (r QuestionResult) ToolCalls() []MCPCall {
	var calls []MCPCall
	for _, item := range r.Items {
		if item.Call != nil {
			calls = append(calls, *item.Call)
		}
	}
	return calls
}

// ToolErrors counts the tool calls that carry a server-side error.
func (r QuestionResult) ToolErrors() int {
	n := 0
	for _, call := range r.ToolCalls() {
		if call.Error != "" {
			n++
		}
	}
	return n
}

// OutputItem is the subset of a response output item we report on.
// Call is set for mcp_call items, ListedTools for mcp_list_tools items.
type OutputItem struct {
	Type        string   `json:"type"`
	Call        *MCPCall `json:"call,omitempty"`
	ListedTools []string `json:"listed_tools,omitempty"`
	ListError   string   `json:"list_error,omitempty"`
}

type MCPCall struct {
	ID          string `json:"id"`
	ServerLabel string `json:"server_label"`
	Name        string `json:"name"`
	Arguments   string `json:"arguments"`
	Output      string `json:"output,omitempty"`
	Error       string `json:"error,omitempty"`

	// Violations of the input schema advertised by the server, if known.
	SchemaViolations []string `json:"schema_violations,omitempty"`
}

// RunSummary holds metadata about a completed run.
type RunSummary struct {
	RunID     string           `json:"run_id"`
	Model     string           `json:"model"`
	ServerURL string           `json:"server_url"`
	Results   []QuestionResult `json:"results"`
	Completed bool             `json:"completed"`
}

// Failed counts the questions whose Responses call failed.
func (s RunSummary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Usage sums the token usage of all questions.
func (s RunSummary) Usage() usage.Usage {
	var total usage.Usage
	for _, r := range s.Results {
		total.Add(r.Usage)
	}
	return total
}

// ToolErrors counts tool calls with a server-side error across all questions.
func (s RunSummary) ToolErrors() int {
	n := 0
	for _, r := range s.Results {
		n += r.ToolErrors()
	}
	return n
}

// collectOutputItems extracts the items we report on, along with the input
// schemas of any tools listed in the same response.
func collectOutputItems(output []responses.ResponseOutputItemUnion) ([]OutputItem, map[string]any) {
	items := make([]OutputItem, 0, len(output))
	var schemas map[string]any

	for _, raw := range output {
		if raw.Type == "" {
			continue
		}
		item := OutputItem{Type: raw.Type}

		switch raw.Type {
		case ItemTypeMCPCall:
			v := raw.AsMcpCall()
			item.Call = &MCPCall{
				ID:          v.ID,
				ServerLabel: v.ServerLabel,
				Name:        v.Name,
				Arguments:   v.Arguments,
				Output:      v.Output,
				Error:       v.Error,
			}
		case ItemTypeMCPListTools:
			v := raw.AsMcpListTools()
			item.ListError = v.Error
			for _, tool := range v.Tools {
				item.ListedTools = append(item.ListedTools, tool.Name)
				if tool.InputSchema != nil {
					if schemas == nil {
						schemas = make(map[string]any)
					}
					schemas[tool.Name] = tool.InputSchema
				}
			}
		}
		items = append(items, item)
	}
	return items, schemas
}
