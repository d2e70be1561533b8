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

import "context"

// Processor receives traces and spans as they start and finish.
type Processor interface {
	OnTraceStart(context.Context, Trace) error
	OnTraceEnd(context.Context, Trace) error
	OnSpanStart(context.Context, Span) error
	OnSpanEnd(context.Context, Span) error

	// Shutdown is called once, when the command exits.
	Shutdown(context.Context) error

	// ForceFlush exports whatever the processor has buffered.
	ForceFlush(context.Context) error
}
