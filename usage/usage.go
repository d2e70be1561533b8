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

// Package usage accounts for the tokens spent by a verification run.
package usage

import (
	"log/slog"

	"github.com/openai/openai-go/v3/responses"
)

// Usage counts requests and tokens. The zero value is ready to use.
type Usage struct {
	// Responses requests that returned a response.
	Requests uint64 `json:"requests"`

	InputTokens     uint64 `json:"input_tokens"`
	CachedTokens    uint64 `json:"cached_tokens"`
	OutputTokens    uint64 `json:"output_tokens"`
	ReasoningTokens uint64 `json:"reasoning_tokens"`
	TotalTokens     uint64 `json:"total_tokens"`
}

// FromResponse returns the usage of a single response.
func FromResponse(r *responses.Response) Usage {
	if r == nil {
		return Usage{}
	}
	u := r.Usage
	return Usage{
		Requests:        1,
		InputTokens:     nonNegative(u.InputTokens),
		CachedTokens:    nonNegative(u.InputTokensDetails.CachedTokens),
		OutputTokens:    nonNegative(u.OutputTokens),
		ReasoningTokens: nonNegative(u.OutputTokensDetails.ReasoningTokens),
		TotalTokens:     nonNegative(u.TotalTokens),
	}
}

func (u *Usage) Add(other Usage) {
	u.Requests += other.Requests
	u.InputTokens += other.InputTokens
	u.CachedTokens += other.CachedTokens
	u.OutputTokens += other.OutputTokens
	u.ReasoningTokens += other.ReasoningTokens
	u.TotalTokens += other.TotalTokens
}

// LogValue implements slog.LogValuer.
func (u Usage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("requests", u.Requests),
		slog.Uint64("input_tokens", u.InputTokens),
		slog.Uint64("output_tokens", u.OutputTokens),
		slog.Uint64("total_tokens", u.TotalTokens),
	)
}

func nonNegative(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}
