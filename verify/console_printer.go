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
	"fmt"
	"io"
	"strings"
)

var separator = strings.Repeat("-", 60)

// consolePrinter writes the human-readable report. Write errors are ignored:
// the report is best effort and never changes the outcome of a run.
type consolePrinter struct {
	w       io.Writer
	verbose bool
}

func newConsolePrinter(w io.Writer, verbose bool) *consolePrinter {
	if w == nil {
		w = io.Discard
	}
	return &consolePrinter{w: w, verbose: verbose}
}

func (p *consolePrinter) OnRunStarted(serverURL string) {
	_, _ = fmt.Fprintf(p.w, "Testing Local via Ngrok: %s\n", serverURL)
	_, _ = fmt.Fprintln(p.w, separator)
}

func (p *consolePrinter) OnPreflight(tools []string) {
	_, _ = fmt.Fprintf(p.w, "Preflight: %d tool(s) available: %s\n", len(tools), strings.Join(tools, ", "))
}

func (p *consolePrinter) OnQuestion(question string) {
	_, _ = fmt.Fprintf(p.w, "\n❓ Question: %s\n", question)
	_, _ = fmt.Fprintln(p.w, separator)
}

func (p *consolePrinter) OnResult(result QuestionResult) {
	_, _ = fmt.Fprintln(p.w, result.OutputText)

	for _, item := range result.Items {
		if p.verbose {
			_, _ = fmt.Fprintf(p.w, "  - %s\n", item.Type)
		}
		switch {
		case item.Call != nil:
			p.printCall(*item.Call)
		case item.Type == ItemTypeMCPListTools && p.verbose:
			_, _ = fmt.Fprintf(p.w, "    Tools: %s\n", strings.Join(item.ListedTools, ", "))
			if item.ListError != "" {
				_, _ = fmt.Fprintf(p.w, "    Error: %s\n", item.ListError)
			}
		}
	}
}

func (p *consolePrinter) printCall(call MCPCall) {
	_, _ = fmt.Fprintf(p.w, "    🛠️ Tool called: %s\n", call.Name)
	_, _ = fmt.Fprintf(p.w, "    Arguments: %s\n", call.Arguments)
	if call.Error != "" {
		_, _ = fmt.Fprintf(p.w, "    Error: %s\n", call.Error)
	}
	if p.verbose {
		for _, v := range call.SchemaViolations {
			_, _ = fmt.Fprintf(p.w, "    Schema: %s\n", v)
		}
	}
}

func (p *consolePrinter) OnError(err error) {
	_, _ = fmt.Fprintf(p.w, "\n❌ ERROR: %v\n", err)
}

func (p *consolePrinter) OnHints(err error, serverURL string) {
	WriteHints(p.w, err, serverURL)
}

func (p *consolePrinter) OnRunCompleted() {
	_, _ = fmt.Fprintln(p.w, "\n✅ Verification Complete!")
}

// WriteHints prints the remediation hints for a failed run. The hint
// matching the classified cause of err is listed first.
func WriteHints(w io.Writer, err error, serverURL string) {
	type hint struct {
		cause Cause
		text  string
	}
	hints := []hint{
		{CauseCredentials, "OPENAI_API_KEY is not set or is invalid"},
		{CauseAccess, "your OpenAI account lacks access to the Responses API or to MCP tools"},
		{CauseServerUnreachable, fmt.Sprintf("the MCP server is not reachable at %s (is the ngrok tunnel up?)", serverURL)},
	}

	cause := ClassifyError(err)
	if cause == CauseNetwork {
		hints = append([]hint{{CauseNetwork, "the OpenAI API could not be reached (check the network and OPENAI_BASE_URL)"}}, hints...)
	}
	for i, h := range hints {
		if h.cause == cause && i > 0 {
			copy(hints[1:i+1], hints[:i])
			hints[0] = h
			break
		}
	}

	_, _ = fmt.Fprintln(w, "\nPossible causes:")
	for i, h := range hints {
		suffix := ""
		if h.cause == cause {
			suffix = " (most likely)"
		}
		_, _ = fmt.Fprintf(w, "  %d. %s%s\n", i+1, h.text, suffix)
	}
}
