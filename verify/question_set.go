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
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// QuestionSet is the content of a question file. Everything but Questions
// is optional and only overrides the defaults when set.
type QuestionSet struct {
	Questions []string `json:"questions" yaml:"questions"`
	Model     string   `json:"model,omitempty" yaml:"model,omitempty"`
	ServerURL string   `json:"server_url,omitempty" yaml:"server_url,omitempty"`
	FailFast  *bool    `json:"fail_fast,omitempty" yaml:"fail_fast,omitempty"`
}

var ErrInvalidQuestionSet = errors.New("invalid question set")

// ParseQuestionSet decodes a question file, trying JSON first and then YAML.
func ParseQuestionSet(data []byte) (*QuestionSet, error) {
	var set QuestionSet
	if err := json.Unmarshal(data, &set); err != nil {
		set = QuestionSet{}
		if yamlErr := yaml.Unmarshal(data, &set); yamlErr != nil {
			return nil, fmt.Errorf("%w: neither JSON nor YAML: %w", ErrInvalidQuestionSet, errors.Join(err, yamlErr))
		}
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

func LoadQuestionSet(path string) (*QuestionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question file: %w", err)
	}
	set, err := ParseQuestionSet(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

func (s QuestionSet) Validate() error {
	if len(s.Questions) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidQuestionSet, ErrNoQuestions)
	}
	for i, q := range s.Questions {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("%w: question %d is empty", ErrInvalidQuestionSet, i+1)
		}
	}
	return nil
}
