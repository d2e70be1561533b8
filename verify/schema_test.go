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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var getCardsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"sort": map[string]any{
			"type": "string",
			"enum": []any{"recommended", "welcome_offer", "interest_rate", "annual_fee", "net_value"},
		},
		"noFee": map[string]any{"type": "boolean"},
		"limit": map[string]any{"type": "number"},
	},
}

func TestCompileToolSchemas(t *testing.T) {
	schemas := CompileToolSchemas(map[string]any{
		"get-cards":  getCardsSchema,
		"get-guides": nil,
		"broken":     map[string]any{"type": 42},
	})
	assert.Contains(t, schemas, "get-cards")
	assert.NotContains(t, schemas, "get-guides")
	assert.NotContains(t, schemas, "broken")
}

func TestToolSchemas_Validate(t *testing.T) {
	schemas := CompileToolSchemas(map[string]any{"get-cards": getCardsSchema})
	require.Len(t, schemas, 1)

	t.Run("valid arguments", func(t *testing.T) {
		assert.Nil(t, schemas.Validate("get-cards", `{"sort":"annual_fee","noFee":true,"limit":3}`))
	})

	t.Run("empty arguments are an empty object", func(t *testing.T) {
		assert.Nil(t, schemas.Validate("get-cards", ""))
	})

	t.Run("unknown tool", func(t *testing.T) {
		assert.Nil(t, schemas.Validate("get-guides", `not even json`))
	})

	t.Run("enum violation", func(t *testing.T) {
		violations := schemas.Validate("get-cards", `{"sort":"cheapest"}`)
		require.Len(t, violations, 1)
		assert.Contains(t, violations[0], "sort")
	})

	t.Run("type violation", func(t *testing.T) {
		violations := schemas.Validate("get-cards", `{"noFee":"yes","limit":"3"}`)
		assert.Len(t, violations, 2)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		violations := schemas.Validate("get-cards", `{"sort":`)
		require.Len(t, violations, 1)
		assert.Contains(t, violations[0], "arguments are not valid JSON")
	})
}

func TestToolSchemas_Merge(t *testing.T) {
	strict := CompileToolSchemas(map[string]any{"get-cards": map[string]any{
		"type":     "object",
		"required": []any{"bank"},
	}})
	loose := CompileToolSchemas(map[string]any{"get-cards": map[string]any{"type": "object"}})

	assert.Nil(t, strict.Merge(loose).Validate("get-cards", `{}`))
	assert.NotNil(t, loose.Merge(strict).Validate("get-cards", `{}`))

	var empty ToolSchemas
	assert.Len(t, empty.Merge(strict), 1)
}
