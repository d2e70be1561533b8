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
	"log/slog"
	"strings"
	"testing"

	"github.com/nlpodyssey/cardpilot-verify/tracing"
	"github.com/stretchr/testify/assert"
)

func TestLogger_Levels(t *testing.T) {
	t.Cleanup(ResetLogger)

	ResetLogger()
	assert.False(t, Logger().Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, Logger().Enabled(context.Background(), slog.LevelWarn))

	EnableDebugLogging()
	assert.True(t, Logger().Enabled(context.Background(), slog.LevelDebug))

	var sb strings.Builder
	custom := slog.New(slog.NewTextHandler(&sb, nil))
	SetLogger(custom)
	SetLogger(nil)
	assert.Same(t, custom, Logger())
	assert.Same(t, custom, tracing.Logger())

	Logger().Info("captured")
	assert.Contains(t, sb.String(), "msg=captured")
}
