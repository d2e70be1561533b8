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
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/nlpodyssey/cardpilot-verify/tracing"
	"github.com/nlpodyssey/cardpilot-verify/usage"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/responses"
)

// Policy decides what happens when the Responses call for a question fails.
type Policy string

const (
	// PolicyTolerant reports the failure and moves on to the next question.
	PolicyTolerant Policy = "tolerant"

	// PolicyFailFast reports the failure with remediation hints and stops the run.
	PolicyFailFast Policy = "fail-fast"
)

// ParsePolicy parses a policy name. The empty string selects PolicyTolerant.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyTolerant, nil
	case PolicyTolerant, PolicyFailFast:
		return p, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q", s)
	}
}

// TraceWorkflowName names the trace recorded for each run.
const TraceWorkflowName = "cardpilot-verify"

// ToolLister lists the tools of an MCP server by connecting to it directly,
// returning each tool's raw input schema keyed by tool name.
type ToolLister interface {
	ListToolSchemas(ctx context.Context) (map[string]any, error)
}

// Recorder persists question results. Recording failures are logged and
// never affect the outcome of a run.
type Recorder interface {
	Record(ctx context.Context, runID string, result QuestionResult) error
}

// Runner sends each question to the Responses API with a single hosted MCP
// tool attached, and reports the answer and the tool activity.
//
// Questions are processed sequentially and independently: nothing but the
// client handle is shared between them.
type Runner struct {
	client    ResponseCreator
	model     openai.ChatModel
	tool      MCPToolDescriptor
	policy    Policy
	printer   *consolePrinter
	preflight ToolLister
	recorder  Recorder
	newRunID  func() string
}

type RunnerParams struct {
	// Required client used to create responses.
	Client ResponseCreator

	// Optional model name. Defaults to DefaultModel.
	Model openai.ChatModel

	// MCP tool attached to every request. ServerURL defaults to DefaultServerURL.
	Tool MCPToolDescriptor

	// Optional failure policy. Defaults to PolicyTolerant.
	Policy Policy

	// Whether to also print every output item type and the discovered tool
	// lists, along with argument schema violations.
	Verbose bool

	// Optional destination of the report. Defaults to io.Discard.
	Output io.Writer

	// Optional MCP server probe run before the first question.
	Preflight ToolLister

	// Optional result recorder.
	Recorder Recorder
}

func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Client == nil {
		return nil, errors.New("runner requires a Client")
	}
	policy := cmp.Or(params.Policy, PolicyTolerant)
	if _, err := ParsePolicy(string(policy)); err != nil {
		return nil, err
	}

	tool := params.Tool
	tool.ServerURL = cmp.Or(tool.ServerURL, DefaultServerURL)

	return &Runner{
		client:    params.Client,
		model:     cmp.Or(params.Model, DefaultModel),
		tool:      tool,
		policy:    policy,
		printer:   newConsolePrinter(params.Output, params.Verbose),
		preflight: params.Preflight,
		recorder:  params.Recorder,
		newRunID:  uuid.NewString,
	}, nil
}

// Run processes the questions in order.
//
// With PolicyTolerant the returned error is nil even if some questions
// failed: failures are available in the summary. With PolicyFailFast the
// first failure is returned as a *QuestionError and no further questions
// are attempted. A missing API key is reported before any request is made,
// regardless of the policy.
func (r *Runner) Run(ctx context.Context, questions []string) (RunSummary, error) {
	summary := RunSummary{
		RunID:     r.newRunID(),
		Model:     string(r.model),
		ServerURL: r.tool.ServerURL,
	}
	if len(questions) == 0 {
		return summary, ErrNoQuestions
	}

	if c, ok := r.client.(CredentialChecker); ok && !c.HasCredentials() {
		err := ErrMissingAPIKey
		r.printer.OnError(err)
		r.printer.OnHints(err, r.tool.ServerURL)
		return summary, err
	}

	logger := Logger().With(slog.String("run_id", summary.RunID))
	logger.Debug("Starting verification run",
		slog.String("model", string(r.model)),
		slog.String("server_url", r.tool.ServerURL),
		slog.String("policy", string(r.policy)),
		slog.Int("questions", len(questions)))

	var runErr error
	traceErr := tracing.RunTrace(ctx, tracing.TraceParams{
		WorkflowName: TraceWorkflowName,
		GroupID:      summary.RunID,
		Metadata: map[string]any{
			"model":      string(r.model),
			"server_url": r.tool.ServerURL,
			"policy":     string(r.policy),
			"questions":  len(questions),
		},
	}, func(ctx context.Context, _ tracing.Trace) error {
		runErr = r.run(ctx, logger, questions, &summary)
		return nil
	})
	if traceErr != nil {
		logger.Warn("Failed to export trace", slog.String("error", traceErr.Error()))
	}
	return summary, runErr
}

func (r *Runner) run(ctx context.Context, logger *slog.Logger, questions []string, summary *RunSummary) error {
	r.printer.OnRunStarted(r.tool.ServerURL)

	known, err := r.runPreflight(ctx)
	if err != nil {
		r.printer.OnError(err)
		if r.policy == PolicyFailFast {
			r.printer.OnHints(err, r.tool.ServerURL)
			return err
		}
		logger.Warn("MCP preflight failed, continuing", slog.String("error", err.Error()))
	}

	for i, question := range questions {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.printer.OnQuestion(question)
		result := r.ask(ctx, i, question, known)
		summary.Results = append(summary.Results, result)
		r.record(ctx, summary.RunID, result)

		if result.Err != nil {
			logger.Debug("Question failed", slog.Int("index", i), slog.String("error", result.Err.Error()))
			r.printer.OnError(result.Err)
			if r.policy == PolicyFailFast {
				qErr := &QuestionError{Index: i, Question: question, Err: result.Err}
				r.printer.OnHints(qErr, r.tool.ServerURL)
				return qErr
			}
			continue
		}
		r.printer.OnResult(result)
	}

	summary.Completed = true
	r.printer.OnRunCompleted()
	logger.Debug("Verification run completed",
		slog.Int("failed", summary.Failed()),
		slog.Int("tool_errors", summary.ToolErrors()),
		slog.Any("usage", summary.Usage()))
	return nil
}

func (r *Runner) runPreflight(ctx context.Context) (ToolSchemas, error) {
	if r.preflight == nil {
		return nil, nil
	}

	data := &tracing.MCPListToolsSpanData{Server: r.tool.ServerURL}
	var (
		raw     map[string]any
		listErr error
	)
	spanErr := tracing.MCPToolsSpan(ctx, data, func(ctx context.Context, span tracing.Span) error {
		raw, listErr = r.preflight.ListToolSchemas(ctx)
		if listErr != nil {
			span.SetError(tracing.SpanError{Message: "Error listing tools", Data: map[string]any{"error": listErr.Error()}})
			return nil
		}
		data.Result = slices.Sorted(maps.Keys(raw))
		return nil
	})
	if spanErr != nil {
		Logger().Warn("Failed to export preflight span", slog.String("error", spanErr.Error()))
	}
	if listErr != nil {
		return nil, fmt.Errorf("MCP preflight: %w", listErr)
	}

	r.printer.OnPreflight(data.Result)
	return CompileToolSchemas(raw), nil
}

func (r *Runner) ask(ctx context.Context, index int, question string, known ToolSchemas) QuestionResult {
	result := QuestionResult{Index: index, Question: question}

	data := &tracing.ResponseSpanData{
		Index:       index,
		Question:    question,
		Model:       string(r.model),
		ServerLabel: cmp.Or(r.tool.ServerLabel, DefaultServerLabel),
		ServerURL:   r.tool.ServerURL,
	}
	spanErr := tracing.ResponseSpan(ctx, data, func(ctx context.Context, span tracing.Span) error {
		response, err := r.client.CreateResponse(ctx, r.newParams(question))
		if err != nil {
			result.Err = err
			span.SetError(tracing.SpanError{Message: "Error getting response", Data: map[string]any{"error": err.Error()}})
			return nil
		}

		result.ResponseID = response.ID
		result.OutputText = response.OutputText()
		result.Usage = usage.FromResponse(response)
		data.ResponseID = result.ResponseID
		data.OutputText = result.OutputText
		data.Usage = result.Usage

		items, listed := collectOutputItems(response.Output)
		schemas := known.Merge(CompileToolSchemas(listed))
		for _, item := range items {
			if item.Call != nil {
				item.Call.SchemaViolations = schemas.Validate(item.Call.Name, item.Call.Arguments)
			}
		}
		result.Items = items

		Logger().Debug("LLM responded",
			slog.String("response_id", response.ID),
			slog.Int("items", len(items)),
			slog.Int("tool_errors", result.ToolErrors()))
		return traceToolCalls(ctx, result.ToolCalls())
	})
	if spanErr != nil {
		Logger().Warn("Failed to export response span",
			slog.Int("index", index), slog.String("error", spanErr.Error()))
	}
	return result
}

// traceToolCalls records the hosted MCP calls of a response as child spans
// of the current response span.
func traceToolCalls(ctx context.Context, calls []MCPCall) error {
	var errs []error
	for _, call := range calls {
		span := tracing.NewMCPCallSpan(ctx, &tracing.MCPCallSpanData{
			Server:    call.ServerLabel,
			Name:      call.Name,
			Arguments: call.Arguments,
			Output:    call.Output,
			Error:     call.Error,
		})
		if call.Error != "" {
			span.SetError(tracing.SpanError{Message: "Error running tool", Data: map[string]any{"error": call.Error}})
		}
		errs = append(errs, span.Start(ctx, false), span.Finish(ctx, false))
	}
	return errors.Join(errs...)
}

func (r *Runner) newParams(question string) responses.ResponseNewParams {
	return responses.ResponseNewParams{
		Model: r.model,
		Input: responses.ResponseNewParamsInputUnion{OfString: param.NewOpt(question)},
		Tools: []responses.ToolUnionParam{r.tool.ToolParam()},
	}
}

func (r *Runner) record(ctx context.Context, runID string, result QuestionResult) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.Record(ctx, runID, result); err != nil {
		Logger().Warn("Failed to record question result",
			slog.String("run_id", runID),
			slog.Int("index", result.Index),
			slog.String("error", err.Error()))
	}
}
