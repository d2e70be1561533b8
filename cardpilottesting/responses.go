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

package cardpilottesting

import (
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3/responses"
)

// Item is a raw Responses API output item, as it appears on the wire.
type Item map[string]any

// ListedTool is a tool reported by an mcp_list_tools item.
type ListedTool struct {
	Name        string
	Description string
	InputSchema map[string]any
}

func MessageItem(text string) Item {
	return Item{
		"type":   "message",
		"id":     "msg_fake",
		"role":   "assistant",
		"status": "completed",
		"content": []any{
			map[string]any{"type": "output_text", "text": text, "annotations": []any{}},
		},
	}
}

// MCPCallItem returns an mcp_call item. An empty errMsg is encoded as null.
func MCPCallItem(name, arguments, errMsg string) Item {
	var e any
	if errMsg != "" {
		e = errMsg
	}
	return Item{
		"type":         "mcp_call",
		"id":           "mcp_fake_" + name,
		"server_label": "cardpilot_local",
		"name":         name,
		"arguments":    arguments,
		"output":       "",
		"error":        e,
	}
}

func MCPListToolsItem(tools ...ListedTool) Item {
	listed := make([]any, len(tools))
	for i, t := range tools {
		listed[i] = map[string]any{
			"name":         t.Name,
			"description":  t.Description,
			"input_schema": t.InputSchema,
			"annotations":  nil,
		}
	}
	return Item{
		"type":         "mcp_list_tools",
		"id":           "mcpl_fake",
		"server_label": "cardpilot_local",
		"tools":        listed,
	}
}

// ResponseJSON encodes a completed response containing the given items.
func ResponseJSON(id string, items ...Item) []byte {
	if items == nil {
		items = []Item{}
	}
	b, err := json.Marshal(map[string]any{
		"id":                  id,
		"object":              "response",
		"created_at":          1750000000,
		"model":               "gpt-4o",
		"status":              "completed",
		"output":              items,
		"parallel_tool_calls": true,
		"tool_choice":         "auto",
		"tools":               []any{},
	})
	if err != nil {
		panic(fmt.Errorf("failed to marshal fake response: %w", err))
	}
	return b
}

// NewResponse decodes a response built from the given items. Decoding goes
// through JSON so that the union accessors (AsMcpCall, ...) work as they do
// on real responses.
func NewResponse(id string, items ...Item) *responses.Response {
	var r responses.Response
	if err := json.Unmarshal(ResponseJSON(id, items...), &r); err != nil {
		panic(fmt.Errorf("failed to unmarshal fake response: %w", err))
	}
	return &r
}

// ErrorJSON encodes an OpenAI API error body.
func ErrorJSON(message, typ string) []byte {
	b, _ := json.Marshal(map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    typ,
			"param":   nil,
			"code":    nil,
		},
	})
	return b
}
