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

package probe_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nlpodyssey/cardpilot-verify/cardpilottesting"
	"github.com/nlpodyssey/cardpilot-verify/probe"
	"github.com/nlpodyssey/cardpilot-verify/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCardPilotProbe(t *testing.T) *probe.Server {
	t.Helper()
	ts := cardpilottesting.NewCardPilotHTTPServer(t)
	return probe.New(probe.Params{URL: ts.URL + "/mcp", HTTPClient: ts.Client()})
}

func TestServer_Name(t *testing.T) {
	s := probe.New(probe.Params{URL: "https://example.com/mcp"})
	assert.Equal(t, "cardpilot-verify: https://example.com/mcp", s.Name())

	s = probe.New(probe.Params{URL: "https://example.com/mcp", Name: "cardpilot"})
	assert.Equal(t, "cardpilot", s.Name())
}

func TestServer_ListTools(t *testing.T) {
	s := newCardPilotProbe(t)

	_, err := s.ListTools(t.Context())
	assert.ErrorIs(t, err, probe.ErrNotConnected)

	err = s.Run(t.Context(), func(ctx context.Context, s *probe.Server) error {
		tools, err := s.ListTools(ctx)
		if err != nil {
			return err
		}
		names := make([]string, len(tools))
		for i, tool := range tools {
			names[i] = tool.Name
		}
		assert.ElementsMatch(t, []string{"get-guides", "get-cards", "get-card-details"}, names)
		return nil
	})
	require.NoError(t, err)

	// The session is closed once Run returns.
	_, err = s.ListTools(t.Context())
	assert.ErrorIs(t, err, probe.ErrNotConnected)
}

func TestServer_RunPropagatesCallbackError(t *testing.T) {
	s := newCardPilotProbe(t)
	want := errors.New("stop")
	err := s.Run(t.Context(), func(context.Context, *probe.Server) error { return want })
	assert.ErrorIs(t, err, want)
}

func TestServer_ListToolSchemas(t *testing.T) {
	s := newCardPilotProbe(t)

	raw, err := s.ListToolSchemas(t.Context())
	require.NoError(t, err)
	require.Len(t, raw, 3)

	schemas := verify.CompileToolSchemas(raw)
	require.Contains(t, schemas, "get-card-details")
	require.Contains(t, schemas, "get-cards")

	assert.Nil(t, schemas.Validate("get-card-details", `{"cardId":"tangerine-mc"}`))
	violations := schemas.Validate("get-card-details", `{}`)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "cardId")

	assert.NotEmpty(t, schemas.Validate("get-cards", `{"sort":"cheapest"}`))
}

func TestServer_Unreachable(t *testing.T) {
	t.Run("failing transport", func(t *testing.T) {
		refused := errors.New("connection refused")
		s := probe.New(probe.Params{Transport: cardpilottesting.FailingMCPTransport{Err: refused}})

		_, err := s.ListToolSchemas(t.Context())
		assert.ErrorIs(t, err, verify.ErrServerUnreachable)
		assert.ErrorIs(t, err, refused)
		assert.Equal(t, verify.CauseServerUnreachable, verify.ClassifyError(err))
	})

	t.Run("closed server", func(t *testing.T) {
		ts := httptest.NewServer(nil)
		url := ts.URL + "/mcp"
		ts.Close()

		s := probe.New(probe.Params{URL: url, Timeout: 5 * time.Second})
		_, err := s.ListToolSchemas(t.Context())
		assert.ErrorIs(t, err, verify.ErrServerUnreachable)
	})
}

func TestServer_AsRunnerPreflight(t *testing.T) {
	client := cardpilottesting.NewFakeClient(cardpilottesting.FakeTurn{
		Response: cardpilottesting.NewResponse("resp_1",
			cardpilottesting.MessageItem("Let me check."),
			cardpilottesting.MCPCallItem("get-card-details", `{"id":"td-aeroplan-vi"}`, ""),
		),
	})

	var out strings.Builder
	r, err := verify.NewRunner(verify.RunnerParams{
		Client:    client,
		Tool:      verify.MCPToolDescriptor{ServerURL: "https://test.ngrok-free.app/mcp"},
		Output:    &out,
		Verbose:   true,
		Preflight: newCardPilotProbe(t),
	})
	require.NoError(t, err)

	summary, err := r.Run(t.Context(), []string{"Details for the TD Aeroplan card?"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Preflight: 3 tool(s) available: get-card-details, get-cards, get-guides\n")
	assert.Contains(t, out.String(), "    Schema: ")
	assert.NotEmpty(t, summary.Results[0].ToolCalls()[0].SchemaViolations)
}
