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

// Command cardpilot-verify checks that a CardPilot MCP server, usually
// exposed through an ngrok tunnel, can be used as a hosted MCP tool by the
// OpenAI Responses API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nlpodyssey/cardpilot-verify/config"
	"github.com/nlpodyssey/cardpilot-verify/probe"
	"github.com/nlpodyssey/cardpilot-verify/runlog"
	"github.com/nlpodyssey/cardpilot-verify/tracing"
	"github.com/nlpodyssey/cardpilot-verify/tracing/wrappers/traceloop"
	"github.com/nlpodyssey/cardpilot-verify/verify"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/param"
)

const historyLimit = 20

type stringList []string

func (l *stringList) String() string { return strings.Join(*l, "; ") }

func (l *stringList) Set(v string) error {
	if strings.TrimSpace(v) == "" {
		return errors.New("question must not be empty")
	}
	*l = append(*l, v)
	return nil
}

type options struct {
	envFile       string
	questionsFile string
	questions     stringList
	single        bool
	failFast      bool
	verbose       bool
	preflight     bool
	model         string
	serverURL     string
	runlogDSN     string
	history       bool
	debug         bool

	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{set: make(map[string]bool)}

	fs := flag.NewFlagSet("cardpilot-verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.envFile, "env", "", "path to a .env file (default \".env\", if present)")
	fs.StringVar(&o.questionsFile, "questions", "", "YAML or JSON question file")
	fs.Var(&o.questions, "question", "question to ask; may be repeated, overrides the question set")
	fs.BoolVar(&o.single, "single", false, "ask the single get-cards connectivity question")
	fs.BoolVar(&o.failFast, "fail-fast", false, "stop at the first failed question and print remediation hints")
	fs.BoolVar(&o.verbose, "verbose", false, "print every output item type and the discovered tools")
	fs.BoolVar(&o.preflight, "preflight", false, "list the MCP server tools directly before asking questions")
	fs.StringVar(&o.model, "model", "", "model name (env "+config.EnvModel+")")
	fs.StringVar(&o.serverURL, "server-url", "", "MCP server URL (env "+config.EnvServerURL+")")
	fs.StringVar(&o.runlogDSN, "runlog", "", "run log DSN, sqlite:<path> or postgres://... (env "+config.EnvRunlogDSN+")")
	fs.BoolVar(&o.history, "history", false, "print the recorded runs and exit")
	fs.BoolVar(&o.debug, "debug", false, "enable debug logging to stderr")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

// resolve merges, from lowest to highest precedence, the environment, the
// question file and the command line flags.
func (o *options) resolve() (config.Config, []string, verify.Policy, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return cfg, nil, "", err
	}

	questions := verify.DefaultQuestions()
	policy := verify.PolicyTolerant

	if o.questionsFile != "" {
		set, err := verify.LoadQuestionSet(o.questionsFile)
		if err != nil {
			return cfg, nil, "", err
		}
		questions = set.Questions
		if set.Model != "" {
			cfg.Model = set.Model
		}
		if set.ServerURL != "" {
			cfg.ServerURL = set.ServerURL
		}
		if set.FailFast != nil && *set.FailFast {
			policy = verify.PolicyFailFast
		}
	}

	if o.single {
		questions = []string{verify.SingleQuestion}
	}
	if len(o.questions) > 0 {
		questions = o.questions
	}
	if o.set["fail-fast"] {
		policy = verify.PolicyTolerant
		if o.failFast {
			policy = verify.PolicyFailFast
		}
	}
	if o.set["model"] {
		cfg.Model = o.model
	}
	if o.set["server-url"] {
		cfg.ServerURL = o.serverURL
	}
	if o.set["runlog"] {
		cfg.RunlogDSN = o.runlogDSN
	}

	return cfg, questions, policy, cfg.Validate()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	if o.debug {
		verify.EnableDebugLogging()
	}

	cfg, questions, policy, err := o.resolve()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 1
	}

	if o.history {
		if err = printHistory(ctx, cfg.RunlogDSN, stdout); err != nil {
			_, _ = fmt.Fprintf(stderr, "history error: %v\n", err)
			return 1
		}
		return 0
	}

	defer setupTracing(ctx, cfg)()

	params := verify.RunnerParams{
		Client:  verify.NewOpenaiClient(optString(cfg.BaseURL), optString(cfg.APIKey)),
		Model:   openai.ChatModel(cfg.Model),
		Tool:    verify.MCPToolDescriptor{ServerURL: cfg.ServerURL},
		Policy:  policy,
		Verbose: o.verbose,
		Output:  stdout,
	}
	if o.preflight {
		params.Preflight = probe.New(probe.Params{URL: cfg.ServerURL})
	}
	if cfg.RunlogDSN != "" {
		store, err := runlog.Open(ctx, cfg.RunlogDSN)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "run log error: %v\n", err)
			return 1
		}
		defer func() {
			if err := store.Close(context.WithoutCancel(ctx)); err != nil {
				verify.Logger().Warn("Failed to close run log", slog.String("error", err.Error()))
			}
		}()
		params.Recorder = store
	}

	runner, err := verify.NewRunner(params)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 1
	}

	summary, err := runner.Run(ctx, questions)
	if err != nil {
		verify.Logger().Debug("Verification run failed",
			slog.String("run_id", summary.RunID), slog.String("error", err.Error()))
		return 1
	}
	return 0
}

// setupTracing registers the Traceloop exporter when configured. Tracing is
// optional: an exporter that cannot be created is logged and skipped.
// The returned function shuts the registered processors down.
func setupTracing(ctx context.Context, cfg config.Config) func() {
	if cfg.TraceloopAPIKey == "" {
		return func() {}
	}
	p, err := traceloop.NewTracingProcessor(ctx, traceloop.ProcessorParams{
		APIKey:  cfg.TraceloopAPIKey,
		BaseURL: cfg.TraceloopBaseURL,
	})
	if err != nil {
		verify.Logger().Warn("Traceloop tracing disabled", slog.String("error", err.Error()))
		return func() {}
	}
	tracing.AddTraceProcessor(p)
	return func() {
		tracing.GetTraceProvider().Shutdown(context.WithoutCancel(ctx))
	}
}

func printHistory(ctx context.Context, dsn string, w io.Writer) (err error) {
	if dsn == "" {
		return fmt.Errorf("no run log configured: use -runlog or %s", config.EnvRunlogDSN)
	}
	store, err := runlog.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer func() {
		if e := store.Close(ctx); e != nil {
			err = errors.Join(err, e)
		}
	}()

	runs, err := store.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "No recorded runs.")
		return nil
	}

	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "Run %s  %s  questions: %d  failed: %d\n",
			r.RunID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Questions, r.Failed)

		records, err := store.GetResults(ctx, r.RunID)
		if err != nil {
			return err
		}
		for _, rec := range records {
			status := "ok"
			if rec.Error != "" {
				status = "ERROR: " + rec.Error
			}
			_, _ = fmt.Fprintf(w, "  %d. %s [%s]\n", rec.Index+1, rec.Question, status)
			for _, call := range rec.ToolCalls {
				line := fmt.Sprintf("     🛠️ %s %s", call.Name, call.Arguments)
				if call.Error != "" {
					line += " (error: " + call.Error + ")"
				}
				_, _ = fmt.Fprintln(w, line)
			}
		}
	}
	return nil
}

func optString(v string) param.Opt[string] {
	if v == "" {
		return param.Opt[string]{}
	}
	return param.NewOpt(v)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
