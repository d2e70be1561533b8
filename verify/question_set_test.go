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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultQuestions(t *testing.T) {
	q := DefaultQuestions()
	require.Len(t, q, 7)
	assert.Equal(t, "What are the top 3 recommended credit cards?", q[0])

	q[0] = "changed"
	assert.NotEqual(t, "changed", DefaultQuestions()[0])
	assert.Contains(t, SingleQuestion, "get-cards")
}

func TestParseQuestionSet(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		set, err := ParseQuestionSet([]byte(`{
			"questions": ["Show me cash back cards"],
			"model": "gpt-4.1",
			"server_url": "https://example.com/mcp",
			"fail_fast": true
		}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"Show me cash back cards"}, set.Questions)
		assert.Equal(t, "gpt-4.1", set.Model)
		assert.Equal(t, "https://example.com/mcp", set.ServerURL)
		require.NotNil(t, set.FailFast)
		assert.True(t, *set.FailFast)
	})

	t.Run("YAML", func(t *testing.T) {
		set, err := ParseQuestionSet([]byte("questions:\n  - Show me travel cards\n  - Any no-fee cards?\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Show me travel cards", "Any no-fee cards?"}, set.Questions)
		assert.Empty(t, set.Model)
		assert.Nil(t, set.FailFast)
	})

	t.Run("no questions", func(t *testing.T) {
		_, err := ParseQuestionSet([]byte(`{"model": "gpt-4o"}`))
		assert.ErrorIs(t, err, ErrInvalidQuestionSet)
		assert.ErrorIs(t, err, ErrNoQuestions)
	})

	t.Run("blank question", func(t *testing.T) {
		_, err := ParseQuestionSet([]byte("questions: [\"ok\", \"  \"]"))
		assert.ErrorIs(t, err, ErrInvalidQuestionSet)
		assert.ErrorContains(t, err, "question 2 is empty")
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseQuestionSet([]byte("questions: [unterminated"))
		assert.ErrorIs(t, err, ErrInvalidQuestionSet)
	})
}

func TestLoadQuestionSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("questions:\n  - Hello\n"), 0o600))

	set, err := LoadQuestionSet(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello"}, set.Questions)

	_, err = LoadQuestionSet(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read question file")
}
