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

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sb3fetch/cmd/sb3fetch/commands"
	"github.com/walteh/sb3fetch/pkg/fault"
)

const (
	exitOK          = 0
	exitFailed      = 1
	exitBadLocator  = 2
	exitInterrupted = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()

	code := exitCode(err)
	report(os.Stderr, err, code)
	os.Exit(code)
}

// exitCode maps the outcome of a run to the process status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, fault.ErrResolution):
		return exitBadLocator
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return exitFailed
	}
}

// report prints errors the run has not shown already.
func report(w io.Writer, err error, code int) {
	if err == nil || code == exitInterrupted || errors.Is(err, commands.ErrJobsFailed) {
		return
	}
	fmt.Fprintf(w, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("error:"), err)
}
