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

package status

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// 🎨 Display configuration
const (
	jobIndent  = 2  // spaces before every line
	labelWidth = 48 // width of the locator column
	stageWidth = 18 // width of the stage column
)

// 🎨 Formatter turns events into single console lines
type Formatter interface {
	// FormatEvent formats one event
	FormatEvent(e Event) string

	// FormatProgress formats the finished/total counter
	FormatProgress(finished, total int) string
}

// DefaultFormatter renders events with colored symbols.
type DefaultFormatter struct{}

// NewDefaultFormatter creates a new DefaultFormatter
func NewDefaultFormatter() *DefaultFormatter {
	return &DefaultFormatter{}
}

func symbol(e Event) string {
	switch {
	case e.Type == EventWarning:
		return color.YellowString("⚠")
	case e.Type == EventAsset:
		return color.HiBlackString("+")
	case e.Stage == StageDone:
		return color.GreenString("✓")
	case e.Stage == StageFailed:
		return color.RedString("✗")
	case e.Stage == StageCanceled:
		return color.MagentaString("⊘")
	default:
		return color.CyanString("•")
	}
}

// FormatEvent formats an event as `[index] symbol locator stage detail`.
func (f *DefaultFormatter) FormatEvent(e Event) string {
	label := e.Label
	if r := []rune(label); len(r) > labelWidth {
		label = "…" + string(r[len(r)-labelWidth+1:])
	}

	detail := e.Detail
	if e.Err != nil {
		if detail != "" {
			detail += ": "
		}
		detail += e.Err.Error()
	}

	line := fmt.Sprintf("%s[%d] %s %-*s %-*s %s",
		strings.Repeat(" ", jobIndent),
		e.Job,
		symbol(e),
		labelWidth, label,
		stageWidth, e.Stage.String(),
		detail,
	)
	return strings.TrimRight(line, " ")
}

// FormatProgress formats a progress message with percentage
func (f *DefaultFormatter) FormatProgress(finished, total int) string {
	var percentage float64
	if total == 0 {
		percentage = 0
		if finished > 0 {
			percentage = 100
		}
	} else {
		percentage = float64(finished) / float64(total) * 100
	}

	if finished >= total {
		return fmt.Sprintf("✅ Progress: %d/%d (%.0f%%)", finished, total, percentage)
	}
	return fmt.Sprintf("⏳ Progress: %d/%d (%.0f%%)", finished, total, percentage)
}
