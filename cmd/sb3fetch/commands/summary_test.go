// Copyright 2025 walteh LLC
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

package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sb3fetch/pkg/operation"
	"github.com/walteh/sb3fetch/pkg/status"
)

func TestRenderSummary(t *testing.T) {
	summary := &operation.Summary{
		Results: []operation.Result{
			{
				Index:    0,
				Locator:  "https://scratch.mit.edu/projects/104",
				Provider: "scratch",
				ID:       "104",
				Title:    "Pong",
				Stage:    status.StageDone,
				Path:     "out/Pong.sb3",
				Assets:   operation.Report{Total: 3, Stored: 3},
				Elapsed:  1500 * time.Millisecond,
			},
			{
				Index:    1,
				Locator:  "https://gitblock.cn/Projects/7",
				Provider: "gitblock",
				ID:       "7",
				Stage:    status.StageFailed,
				Err:      errors.New("decoding payload: bad padding"),
			},
			{
				Index:   2,
				Locator: "https://www.40code.com/#page=work&id=42",
				Stage:   status.StageCanceled,
			},
		},
	}

	out := RenderSummary(summary)

	for _, want := range []string{
		"Platform", "Output",
		"Pong", "done", "3/3", "out/Pong.sb3", "1.5s",
		"gitblock", "failed: decoding payload: bad padding",
		"https://www.40code.com/#page=work&id=42", "canceled",
	} {
		assert.Contains(t, out, want)
	}
}

func TestFinished(t *testing.T) {
	jobs := []status.JobInfo{
		{Stage: status.StageDone},
		{Stage: status.StageAssembling},
		{Stage: status.StageCanceled},
	}
	assert.Equal(t, 2, finished(jobs))
}
