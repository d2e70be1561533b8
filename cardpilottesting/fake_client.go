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

	"github.com/openai/openai-go/v3/responses"
)

// FakeClient is a scripted verify.ResponseCreator.
// Each call consumes the next turn; once the turns run out, an empty
// response is returned.
type FakeClient struct {
	Turns []FakeTurn
	Calls []responses.ResponseNewParams
}

type FakeTurn struct {
	Response *responses.Response
	Error    error
}

func NewFakeClient(turns ...FakeTurn) *FakeClient {
	return &FakeClient{Turns: turns}
}

func (c *FakeClient) AddTurn(turn FakeTurn) {
	c.Turns = append(c.Turns, turn)
}

func (c *FakeClient) CreateResponse(_ context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	c.Calls = append(c.Calls, params)

	if len(c.Turns) == 0 {
		return NewResponse("resp_empty"), nil
	}
	turn := c.Turns[0]
	c.Turns = c.Turns[1:]

	if turn.Error != nil {
		return nil, turn.Error
	}
	return turn.Response, nil
}
