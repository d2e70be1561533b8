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
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/responses"
)

// ResponseCreator submits a single Responses API request.
type ResponseCreator interface {
	CreateResponse(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error)
}

// CredentialChecker is optionally implemented by a ResponseCreator that can
// tell, before any request is made, whether an API key is configured.
type CredentialChecker interface {
	HasCredentials() bool
}

// OpenaiClient is a ResponseCreator backed by the official OpenAI client.
// Retries are disabled: each question results in exactly one request.
type OpenaiClient struct {
	openai.Client
	APIKey  param.Opt[string]
	BaseURL param.Opt[string]
}

// NewOpenaiClient creates a new client. When apiKey is not set, the
// OPENAI_API_KEY environment variable is used, as the OpenAI client does.
func NewOpenaiClient(baseURL, apiKey param.Opt[string], opts ...option.RequestOption) OpenaiClient {
	if !apiKey.Valid() {
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			apiKey = param.NewOpt(v)
		}
	}

	opts = append([]option.RequestOption{option.WithMaxRetries(0)}, opts...)
	if baseURL.Valid() {
		opts = append(opts, option.WithBaseURL(baseURL.Value))
	}
	if apiKey.Valid() {
		opts = append(opts, option.WithAPIKey(apiKey.Value))
	}

	return OpenaiClient{
		Client:  openai.NewClient(opts...),
		APIKey:  apiKey,
		BaseURL: baseURL,
	}
}

func (c OpenaiClient) CreateResponse(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	return c.Responses.New(ctx, params)
}

func (c OpenaiClient) HasCredentials() bool {
	return c.APIKey.Valid() && c.APIKey.Value != ""
}
