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

// Package config resolves the verifier settings from the environment,
// optionally seeded from a .env file.
package config

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"

	"github.com/joho/godotenv"
	"github.com/nlpodyssey/cardpilot-verify/verify"
)

const (
	EnvAPIKey    = "OPENAI_API_KEY"
	EnvBaseURL   = "OPENAI_BASE_URL"
	EnvServerURL = "CARDPILOT_MCP_URL"
	EnvModel     = "CARDPILOT_MODEL"
	EnvRunlogDSN = "CARDPILOT_RUNLOG_DSN"

	// Traces are exported to Traceloop when an API key is set.
	EnvTraceloopAPIKey  = "TRACELOOP_API_KEY"
	EnvTraceloopBaseURL = "TRACELOOP_BASE_URL"

	DefaultEnvFile = ".env"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	APIKey    string
	BaseURL   string
	ServerURL string
	Model     string
	RunlogDSN string

	TraceloopAPIKey  string
	TraceloopBaseURL string
}

// Load reads envFile into the process environment, without overriding
// variables that are already set, and then returns FromEnv.
//
// An empty envFile means DefaultEnvFile, which may be missing.
// An explicitly named file must exist.
func Load(envFile string) (Config, error) {
	path := cmp.Or(envFile, DefaultEnvFile)
	err := godotenv.Load(path)
	switch {
	case err == nil:
		verify.Logger().Debug("Loaded environment file", "path", path)
	case envFile == "" && errors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("failed to load environment file %s: %w", path, err)
	}
	return FromEnv(), nil
}

// FromEnv reads the configuration from the environment, applying defaults.
func FromEnv() Config {
	return Config{
		APIKey:    os.Getenv(EnvAPIKey),
		BaseURL:   os.Getenv(EnvBaseURL),
		ServerURL: cmp.Or(os.Getenv(EnvServerURL), verify.DefaultServerURL),
		Model:     cmp.Or(os.Getenv(EnvModel), string(verify.DefaultModel)),
		RunlogDSN: os.Getenv(EnvRunlogDSN),

		TraceloopAPIKey:  os.Getenv(EnvTraceloopAPIKey),
		TraceloopBaseURL: os.Getenv(EnvTraceloopBaseURL),
	}
}

// Validate checks the URLs. A missing API key is not an error here: the
// runner reports it with remediation hints.
func (c Config) Validate() error {
	if err := validateHTTPURL("server URL", c.ServerURL); err != nil {
		return err
	}
	if c.BaseURL != "" {
		if err := validateHTTPURL("base URL", c.BaseURL); err != nil {
			return err
		}
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model is empty", ErrInvalidConfig)
	}
	return nil
}

func validateHTTPURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s %q must be an http(s) URL", ErrInvalidConfig, name, raw)
	}
	return nil
}
