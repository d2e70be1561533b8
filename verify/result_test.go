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
	"encoding/json"
	"testing"

	"github.com/openai/openai-go/v3/responses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_collectOutputItems(t *testing.T) {
	var output []responses.ResponseOutputItemUnion
	err := json.Unmarshal([]byte(`[
		{"type": "mcp_list_tools", "id": "l1", "server_label": "cardpilot_local", "tools": [
			{"name": "get-guides", "input_schema": null},
			{"name": "get-cards", "input_schema": {"type": "object"}}
		]},
		{"type": "mcp_call", "id": "c1", "server_label": "cardpilot_local", "name": "get-cards",
		 "arguments": "{\"limit\":3}", "output": "[]", "error": "timeout"},
		{"type": "message", "id": "m1", "role": "assistant", "status": "completed", "content": []}
	]`), &output)
	require.NoError(t, err)

	items, schemas := collectOutputItems(output)
	require.Len(t, items, 3)

	assert.Equal(t, OutputItem{
		Type:        ItemTypeMCPListTools,
		ListedTools: []string{"get-guides", "get-cards"},
	}, items[0])
	assert.Equal(t, OutputItem{
		Type: ItemTypeMCPCall,
		Call: &MCPCall{
			ID:          "c1",
			ServerLabel: "cardpilot_local",
			Name:        "get-cards",
			Arguments:   `{"limit":3}`,
			Output:      "[]",
			Error:       "timeout",
		},
	}, items[1])
	assert.Equal(t, OutputItem{Type: "message"}, items[2])

	assert.Contains(t, schemas, "get-cards")
	assert.NotContains(t, schemas, "get-guides")
}

func TestRunSummary_Counts(t *testing.T) {
	summary := RunSummary{Results: []QuestionResult{
		{Items: []OutputItem{
			{Type: ItemTypeMCPCall, Call: &MCPCall{Name: "a", Error: "x"}},
			{Type: ItemTypeMCPCall, Call: &MCPCall{Name: "b"}},
		}},
		{Err: assert.AnError},
		{Items: []OutputItem{{Type: ItemTypeMCPCall, Call: &MCPCall{Name: "c", Error: "y"}}}},
	}}
	assert.Equal(t, 1, summary.Failed())
	assert.Equal(t, 2, summary.ToolErrors())
	assert.Len(t, summary.Results[0].ToolCalls(), 2)
}
