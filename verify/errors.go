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
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/openai/openai-go/v3"
)

var (
	// ErrMissingAPIKey is returned when no OpenAI API key is configured.
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")

	// ErrNoQuestions is returned when a run is started with an empty question set.
	ErrNoQuestions = errors.New("no questions to run")

	// ErrServerUnreachable marks failures to reach the MCP server directly.
	ErrServerUnreachable = errors.New("MCP server unreachable")
)

// QuestionError is returned when the Responses call for a single question fails.
type QuestionError struct {
	// Zero-based position of the question in the run.
	Index    int
	Question string
	Err      error
}

func (e *QuestionError) Error() string {
	return fmt.Sprintf("question %d %q: %v", e.Index+1, e.Question, e.Err)
}

func (e *QuestionError) Unwrap() error { return e.Err }

// Cause is the most likely reason behind a failed run, used to order the
// remediation hints.
type Cause uint8

const (
	CauseUnknown Cause = iota
	CauseCredentials
	CauseAccess
	CauseServerUnreachable
	// CauseNetwork is a transport failure reaching the Responses endpoint.
	CauseNetwork
)

func (c Cause) String() string {
	switch c {
	case CauseCredentials:
		return "credentials"
	case CauseAccess:
		return "access"
	case CauseServerUnreachable:
		return "server_unreachable"
	case CauseNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// ClassifyError inspects err and reports which remediation hint applies best.
func ClassifyError(err error) Cause {
	if err == nil {
		return CauseUnknown
	}
	if errors.Is(err, ErrMissingAPIKey) {
		return CauseCredentials
	}
	if errors.Is(err, ErrServerUnreachable) {
		return CauseServerUnreachable
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return CauseCredentials
		case http.StatusForbidden, http.StatusNotFound:
			return CauseAccess
		case http.StatusFailedDependency, http.StatusBadGateway, http.StatusGatewayTimeout:
			// The Responses API reports failures to reach the hosted MCP
			// server with these codes.
			return CauseServerUnreachable
		}
		return CauseUnknown
	}

	if errors.Is(err, context.Canceled) {
		return CauseUnknown
	}
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return CauseNetwork
	}
	return CauseUnknown
}
