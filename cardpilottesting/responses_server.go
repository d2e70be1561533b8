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
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/nlpodyssey/cardpilot-verify/verify"
	"github.com/openai/openai-go/v3/packages/param"
)

// ResponsesHandler returns the status code and body for the n-th request
// (zero-based) made to the fake Responses endpoint.
type ResponsesHandler func(n int, body map[string]any) (int, []byte)

// ResponsesServer is an httptest server standing in for POST /responses.
// It records the decoded body and headers of every request.
type ResponsesServer struct {
	*httptest.Server

	mu      sync.Mutex
	bodies  []map[string]any
	headers []http.Header
}

func NewResponsesServer(t testing.TB, handle ResponsesHandler) *ResponsesServer {
	t.Helper()
	s := &ResponsesServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/responses" {
			http.NotFound(w, r)
			return
		}

		raw, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var body map[string]any
		if err = json.Unmarshal(raw, &body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		n := len(s.bodies)
		s.bodies = append(s.bodies, body)
		s.headers = append(s.headers, r.Header.Clone())
		s.mu.Unlock()

		status, payload := handle(n, body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(payload)
	}))
	t.Cleanup(s.Close)
	return s
}

// Requests returns the decoded bodies of the requests received so far.
func (s *ResponsesServer) Requests() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.bodies)
}

// Headers returns the headers of the requests received so far.
func (s *ResponsesServer) Headers() []http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.headers)
}

// Client returns an OpenAI client pointed at this server.
// An empty apiKey leaves the key unset.
func (s *ResponsesServer) Client(apiKey string) verify.OpenaiClient {
	var key param.Opt[string]
	if apiKey != "" {
		key = param.NewOpt(apiKey)
	}
	return verify.NewOpenaiClient(param.NewOpt(s.URL), key)
}
