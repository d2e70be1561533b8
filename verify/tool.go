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

	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared/constant"
)

const (
	DefaultServerLabel       = "cardpilot_local"
	DefaultServerDescription = "CardPilot Local Test"
	DefaultRequireApproval   = "never"
)

// MCPToolDescriptor describes the single hosted MCP tool attached to every request.
// The Responses API connects to ServerURL on our behalf; this process never talks
// to it unless a preflight probe is configured.
type MCPToolDescriptor struct {
	// Optional label, defaults to DefaultServerLabel.
	ServerLabel string

	// Optional description, defaults to DefaultServerDescription.
	ServerDescription string

	// Required URL of the MCP server, usually an ngrok tunnel.
	ServerURL string

	// Optional approval setting ("never" or "always"), defaults to DefaultRequireApproval.
	RequireApproval string
}

// ToolParam converts the descriptor to its Responses API representation.
func (d MCPToolDescriptor) ToolParam() responses.ToolUnionParam {
	return responses.ToolUnionParam{
		OfMcp: &responses.ToolMcpParam{
			ServerLabel:       cmp.Or(d.ServerLabel, DefaultServerLabel),
			ServerDescription: param.NewOpt(cmp.Or(d.ServerDescription, DefaultServerDescription)),
			ServerURL:         param.NewOpt(d.ServerURL),
			RequireApproval: responses.ToolMcpRequireApprovalUnionParam{
				OfMcpToolApprovalSetting: param.NewOpt(cmp.Or(d.RequireApproval, DefaultRequireApproval)),
			},
			Type: constant.ValueOf[constant.Mcp](),
		},
	}
}
