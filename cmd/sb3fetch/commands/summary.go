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
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/walteh/sb3fetch/pkg/operation"
	"github.com/walteh/sb3fetch/pkg/status"
)

// 📊 RenderSummary renders one row per job in locator order
func RenderSummary(summary *operation.Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Platform", "Project", "Status", "Assets", "Time", "Output"})

	for _, res := range summary.Results {
		tw.AppendRow(table.Row{
			res.Index + 1,
			orDash(res.Provider),
			project(res),
			outcome(res),
			assets(res),
			res.Elapsed.Round(10 * time.Millisecond).String(),
			orDash(res.Path),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	return tw.Render()
}

// PrintSummary writes RenderSummary and a trailing newline to w.
func PrintSummary(w io.Writer, summary *operation.Summary) {
	fmt.Fprintln(w, RenderSummary(summary))
}

func project(res operation.Result) string {
	switch {
	case res.Title != "":
		return res.Title
	case res.ID != "":
		return res.ID
	default:
		return res.Locator
	}
}

func outcome(res operation.Result) string {
	switch res.Stage {
	case status.StageDone:
		return "done"
	case status.StageFailed:
		return "failed: " + res.Err.Error()
	default:
		return res.Stage.String()
	}
}

func assets(res operation.Result) string {
	if res.Assets.Total == 0 {
		return "-"
	}
	return fmt.Sprintf("%d/%d", res.Assets.Stored, res.Assets.Total)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
