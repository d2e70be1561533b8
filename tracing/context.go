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

import (
	"context"
	"sync"
)

type scopeContextKey struct{}

// Scope holds the trace and span that new spans attach to by default.
type Scope struct {
	mu           sync.RWMutex
	currentTrace Trace
	currentSpan  Span
}

// ContextWithClonedOrNewScope returns a context carrying its own Scope,
// initialized from the Scope of ctx if there is one. Spans started on the
// returned context do not leak into ctx.
func ContextWithClonedOrNewScope(ctx context.Context) context.Context {
	scope := new(Scope)
	if parent, ok := scopeFromContext(ctx); ok {
		parent.mu.RLock()
		scope.currentTrace = parent.currentTrace
		scope.currentSpan = parent.currentSpan
		parent.mu.RUnlock()
	}
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

func scopeFromContext(ctx context.Context) (*Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey{}).(*Scope)
	return scope, ok
}

func currentTrace(ctx context.Context) Trace {
	scope, ok := scopeFromContext(ctx)
	if !ok {
		return nil
	}
	scope.mu.RLock()
	defer scope.mu.RUnlock()
	return scope.currentTrace
}

func currentSpan(ctx context.Context) Span {
	scope, ok := scopeFromContext(ctx)
	if !ok {
		return nil
	}
	scope.mu.RLock()
	defer scope.mu.RUnlock()
	return scope.currentSpan
}

// setCurrentTrace sets the current trace of the scope of ctx, if any,
// and returns the previous one.
func setCurrentTrace(ctx context.Context, t Trace) Trace {
	scope, ok := scopeFromContext(ctx)
	if !ok {
		return nil
	}
	scope.mu.Lock()
	defer scope.mu.Unlock()
	prev := scope.currentTrace
	scope.currentTrace = t
	return prev
}

func setCurrentSpan(ctx context.Context, s Span) Span {
	scope, ok := scopeFromContext(ctx)
	if !ok {
		return nil
	}
	scope.mu.Lock()
	defer scope.mu.Unlock()
	prev := scope.currentSpan
	scope.currentSpan = s
	return prev
}
