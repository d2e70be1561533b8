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

package cardpilottesting

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Card is the fixture record served by the fake CardPilot tools.
type Card struct {
	CardID    string  `json:"cardId"`
	Name      string  `json:"name"`
	Bank      string  `json:"bank"`
	Category  string  `json:"category"`
	AnnualFee float64 `json:"annualFee"`
	Score     float64 `json:"score"`
}

var fixtureCards = []Card{
	{CardID: "td-aeroplan-vi", Name: "TD Aeroplan Visa Infinite Card", Bank: "TD", Category: "travel", AnnualFee: 139, Score: 4.6},
	{CardID: "td-cash-back-vi", Name: "TD Cash Back Visa Infinite Card", Bank: "TD", Category: "cash_back", AnnualFee: 139, Score: 4.2},
	{CardID: "tangerine-mc", Name: "Tangerine Money-Back Credit Card", Bank: "Tangerine", Category: "cash_back", AnnualFee: 0, Score: 4.4},
	{CardID: "pc-world-elite", Name: "PC Financial World Elite Mastercard", Bank: "PC Financial", Category: "groceries", AnnualFee: 0, Score: 4.5},
}

// GetCardsSchema is the input schema of the get-cards tool.
var GetCardsSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"sort": {
			Type:        "string",
			Enum:        []any{"recommended", "welcome_offer", "interest_rate", "annual_fee", "net_value"},
			Description: "Sort criteria for the cards",
		},
		"direction": {Type: "string", Enum: []any{"asc", "desc"}, Description: "Sort direction"},
		"bank":      {Type: "string", Description: "Filter by bank name"},
		"category":  {Type: "string", Description: "Filter by category/rewards"},
		"noFee":     {Type: "boolean", Description: "Filter for no-annual-fee cards"},
		"limit":     {Type: "integer", Description: "Maximum number of cards to return (default: 5)"},
	},
}

// GetCardDetailsSchema is the input schema of the get-card-details tool.
var GetCardDetailsSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"cardId": {Type: "string", Description: "Identifier of the card"},
	},
	Required: []string{"cardId"},
}

type getCardsArgs struct {
	Sort      string `json:"sort,omitempty"`
	Direction string `json:"direction,omitempty"`
	Bank      string `json:"bank,omitempty"`
	Category  string `json:"category,omitempty"`
	NoFee     *bool  `json:"noFee,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type getCardsResult struct {
	Cards []Card `json:"cards"`
	Total int    `json:"total"`
}

type getCardDetailsArgs struct {
	CardID string `json:"cardId"`
}

// NewCardPilotMCPServer returns an MCP server exposing get-guides,
// get-cards and get-card-details over fixture data.
func NewCardPilotMCPServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "CardPilot Cards", Version: "1.0.0"}, nil)

	mcp.AddTool(
		server, &mcp.Tool{Name: "get-guides", Description: "List credit card guides"},
		func(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
			return textResult(`{"guides":[{"title":"Cash back or points?"}]}`), nil, nil
		},
	)

	mcp.AddTool(
		server, &mcp.Tool{Name: "get-cards", Description: "List credit cards", InputSchema: GetCardsSchema},
		func(_ context.Context, _ *mcp.CallToolRequest, args getCardsArgs) (*mcp.CallToolResult, getCardsResult, error) {
			cards := filterCards(args)
			b, err := json.Marshal(getCardsResult{Cards: cards, Total: len(cards)})
			if err != nil {
				return nil, getCardsResult{}, err
			}
			return textResult(string(b)), getCardsResult{Cards: cards, Total: len(cards)}, nil
		},
	)

	mcp.AddTool(
		server, &mcp.Tool{Name: "get-card-details", Description: "Get the details of a card", InputSchema: GetCardDetailsSchema},
		func(_ context.Context, _ *mcp.CallToolRequest, args getCardDetailsArgs) (*mcp.CallToolResult, any, error) {
			i := slices.IndexFunc(fixtureCards, func(c Card) bool { return c.CardID == args.CardID })
			if i < 0 {
				res := textResult(fmt.Sprintf("Error fetching card details: 404 card %q not found", args.CardID))
				res.IsError = true
				return res, nil, nil
			}
			b, err := json.Marshal(fixtureCards[i])
			if err != nil {
				return nil, nil, err
			}
			return textResult(string(b)), nil, nil
		},
	)

	return server
}

// NewCardPilotHTTPServer serves NewCardPilotMCPServer over Streamable HTTP
// at the "/mcp" path of an httptest server.
func NewCardPilotHTTPServer(t testing.TB) *httptest.Server {
	t.Helper()
	server := NewCardPilotMCPServer()
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// FailingMCPTransport is an mcp.Transport that always fails to connect.
type FailingMCPTransport struct {
	Err error
}

func (t FailingMCPTransport) Connect(context.Context) (mcp.Connection, error) { return nil, t.Err }

func filterCards(args getCardsArgs) []Card {
	var cards []Card
	for _, c := range fixtureCards {
		if args.Bank != "" && !strings.EqualFold(c.Bank, args.Bank) {
			continue
		}
		if args.Category != "" && c.Category != args.Category {
			continue
		}
		if args.NoFee != nil && *args.NoFee && c.AnnualFee != 0 {
			continue
		}
		cards = append(cards, c)
	}
	if args.Sort == "annual_fee" {
		slices.SortStableFunc(cards, func(a, b Card) int { return int(a.AnnualFee - b.AnnualFee) })
	} else {
		slices.SortStableFunc(cards, func(a, b Card) int {
			switch {
			case a.Score > b.Score:
				return -1
			case a.Score < b.Score:
				return 1
			}
			return 0
		})
	}
	if args.Direction == "asc" && args.Sort != "annual_fee" {
		slices.Reverse(cards)
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 5
	}
	if len(cards) > limit {
		cards = cards[:limit]
	}
	return cards
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
