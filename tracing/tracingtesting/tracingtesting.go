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

// Package tracingtesting captures traces and spans in tests.
package tracingtesting

import (
	"context"
	"testing"

	"github.com/nlpodyssey/cardpilot-verify/tracing"
)

// Setup installs a fresh SpanProcessorForTests as the only trace processor
// and removes it when the test ends. Tests using it must not run in parallel.
func Setup(t *testing.T) *SpanProcessorForTests {
	t.Helper()
	p := NewSpanProcessorForTests()
	tracing.SetTraceProcessors([]tracing.Processor{p})
	t.Cleanup(func() {
		tracing.GetTraceProvider().Shutdown(context.Background())
		tracing.SetTraceProcessors(nil)
	})
	return p
}
