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
	"slices"

	"github.com/openai/openai-go/v3"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = openai.ChatModelGPT4o

// DefaultServerURL is the tunnel the CardPilot server was last exposed on.
// Override it with CARDPILOT_MCP_URL or -server-url.
const DefaultServerURL = "https://232223f5e5e4.ngrok-free.app/mcp"

var defaultQuestions = []string{
	"What are the top 3 recommended credit cards?",
	"I'm new to credit cards. Should I get cash back or points?",
	"Show me all the cash back cards available.",
	"I'm looking for a travel card from TD.",
	"Do you have any recommendations for cards with no annual fee?",
	"Can you give me the details for the TD Aeroplan Visa Infinite Card?",
	"What is the best rated card for groceries that doesn't cost anything to hold?",
}

// SingleQuestion is the prompt used for a one-shot connectivity check.
// It names get-cards explicitly so the model is pushed into a tool call.
const SingleQuestion = "Use the get-cards tool to list the top recommended credit cards, " +
	"and tell me which CardPilot tools you have available."

// DefaultQuestions returns a copy of the batch question set.
func DefaultQuestions() []string {
	return slices.Clone(defaultQuestions)
}
