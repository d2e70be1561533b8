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
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ToolSchemas maps MCP tool names to their compiled input schemas.
type ToolSchemas map[string]*gojsonschema.Schema

// CompileToolSchemas compiles raw JSON schemas, as found in mcp_list_tools
// items or returned by the MCP server itself. Tools whose schema is missing
// or cannot be compiled are left out.
func CompileToolSchemas(raw map[string]any) ToolSchemas {
	compiled := make(ToolSchemas, len(raw))
	for name, schema := range raw {
		b, err := json.Marshal(schema)
		if err != nil || string(b) == "null" {
			continue
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
		if err != nil {
			Logger().Debug("Skipping invalid tool input schema",
				slog.String("tool", name), slog.String("error", err.Error()))
			continue
		}
		compiled[name] = s
	}
	return compiled
}

// Merge returns a new set with the schemas of other taking precedence.
func (ts ToolSchemas) Merge(other ToolSchemas) ToolSchemas {
	merged := make(ToolSchemas, len(ts)+len(other))
	maps.Copy(merged, ts)
	maps.Copy(merged, other)
	return merged
}

// Validate checks the JSON arguments of a call to the named tool.
// It returns nil when the arguments are valid or the tool schema is unknown.
func (ts ToolSchemas) Validate(toolName, arguments string) []string {
	schema, ok := ts[toolName]
	if !ok {
		return nil
	}
	if strings.TrimSpace(arguments) == "" {
		arguments = "{}"
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(arguments))
	if err != nil {
		return []string{fmt.Sprintf("arguments are not valid JSON: %v", err)}
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, len(result.Errors()))
	for i, e := range result.Errors() {
		violations[i] = e.String()
	}
	return violations
}
