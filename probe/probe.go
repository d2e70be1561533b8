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

// Package probe connects directly to an MCP server, bypassing the Responses
// API, to tell an unreachable server apart from an OpenAI failure.
package probe

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nlpodyssey/cardpilot-verify/verify"
)

const DefaultTimeout = 15 * time.Second

// ErrNotConnected is returned when the server is used before Connect.
var ErrNotConnected = errors.New("MCP server not connected: make sure you call `Connect()` first")

// Server is an MCP client session over the Streamable HTTP transport.
//
// See: https://modelcontextprotocol.io/specification/2025-06-18/basic/transports#streamable-http
type Server struct {
	name      string
	transport mcp.Transport
	timeout   time.Duration
	session   *mcp.ClientSession
	cleanupMu sync.Mutex
}

type Params struct {
	// URL of the MCP endpoint, e.g. "https://xxxx.ngrok-free.app/mcp".
	URL string

	// A readable name for the client. If not provided, we'll create one from the URL.
	Name string

	// Optional HTTP client used by the transport.
	HTTPClient *http.Client

	// Optional timeout applied by ListToolSchemas. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Optional transport, overriding URL and HTTPClient (mainly for testing).
	Transport mcp.Transport
}

func New(params Params) *Server {
	transport := params.Transport
	if transport == nil {
		transport = &mcp.StreamableClientTransport{
			Endpoint:   params.URL,
			HTTPClient: params.HTTPClient,
		}
	}
	return &Server{
		name:      cmp.Or(params.Name, fmt.Sprintf("cardpilot-verify: %s", params.URL)),
		transport: transport,
		timeout:   cmp.Or(params.Timeout, DefaultTimeout),
	}
}

func (s *Server) Name() string {
	return s.name
}

// Connect opens the MCP session. Failures wrap verify.ErrServerUnreachable.
func (s *Server) Connect(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			verify.Logger().Error("Error connecting to MCP server",
				slog.String("server", s.name), slog.String("error", err.Error()))
			if e := s.Cleanup(ctx); e != nil {
				err = errors.Join(err, fmt.Errorf("MCP server cleanup error: %w", e))
			}
		}
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: s.name}, nil)
	session, err := client.Connect(ctx, s.transport, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", verify.ErrServerUnreachable, err)
	}
	s.session = session
	return nil
}

func (s *Server) Cleanup(context.Context) error {
	s.cleanupMu.Lock()
	defer func() {
		s.session = nil
		s.cleanupMu.Unlock()
	}()

	if s.session != nil {
		err := s.session.Close()
		if err != nil {
			verify.Logger().Error("Error closing MCP session", slog.String("error", err.Error()))
		}
		return err
	}
	return nil
}

// ListTools lists the tools available on the server.
func (s *Server) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	if s.session == nil {
		return nil, ErrNotConnected
	}
	result, err := s.session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: list tools: %w", verify.ErrServerUnreachable, err)
	}
	return result.Tools, nil
}

// Run connects, calls fn and cleans up the session, whatever fn returns.
func (s *Server) Run(ctx context.Context, fn func(context.Context, *Server) error) (err error) {
	err = s.Connect(ctx)
	if err != nil {
		return fmt.Errorf("MCP server connection error: %w", err)
	}
	defer func() {
		if e := s.Cleanup(ctx); e != nil {
			err = errors.Join(err, fmt.Errorf("MCP server cleanup error: %w", e))
		}
	}()
	return fn(ctx, s)
}

// ListToolSchemas opens a short-lived session and returns the input schema
// of each tool keyed by tool name. It implements verify.ToolLister.
func (s *Server) ListToolSchemas(ctx context.Context) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	schemas := make(map[string]any)
	err := s.Run(ctx, func(ctx context.Context, s *Server) error {
		tools, err := s.ListTools(ctx)
		if err != nil {
			return err
		}
		for _, tool := range tools {
			schemas[tool.Name] = tool.InputSchema
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return schemas, nil
}
