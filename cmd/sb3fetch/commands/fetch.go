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
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sb3fetch/cmd/sb3fetch/opts"
	"github.com/walteh/sb3fetch/pkg/config"
	"github.com/walteh/sb3fetch/pkg/log"
	"github.com/walteh/sb3fetch/pkg/operation"
	"github.com/walteh/sb3fetch/pkg/provider/catalog"
	"github.com/walteh/sb3fetch/pkg/status"
	"github.com/walteh/sb3fetch/pkg/transport"
)

// ErrJobsFailed is returned when at least one project could not be saved.
var ErrJobsFailed = errors.Base("projects failed")

// 🚀 Fetch downloads every locator with cfg and prints progress and a summary.
// Unknown locators fail the whole run before any request is made.
func Fetch(ctx context.Context, root *opts.RootOpts, fetch *opts.FetchOpts, cfg *config.Config, locators []string) error {
	console := log.New(root.Stdout, *zerolog.Ctx(ctx)).ShowAssets(fetch.ShowAssets)

	client := transport.New(transport.Options{
		UserAgent:         cfg.UserAgent,
		Timeout:           cfg.RequestTimeout(),
		RequestsPerSecond: cfg.RequestsPerSecond,
	})

	registry, err := catalog.New(ctx, cfg, client)
	if err != nil {
		return errors.Errorf("building providers: %w", err)
	}

	runner, err := operation.NewRunner(operation.Options{
		Config:   cfg,
		Registry: registry,
		Fetcher:  client,
		Sink:     console,
	})
	if err != nil {
		return errors.Errorf("creating runner: %w", err)
	}

	if err := runner.Plan(locators); err != nil {
		return err
	}

	console.Header(fmt.Sprintf("fetching %d project(s) into %s", len(locators), cfg.OutputDir))

	summary, err := runner.Run(ctx, locators)
	if err != nil {
		return err
	}

	console.LogNewline()
	PrintSummary(root.Stdout, summary)
	console.Progress(finished(summary.Jobs), len(summary.Results))

	switch {
	case summary.Canceled:
		console.Warning("interrupted, unfinished projects were discarded")
		return errors.Errorf("run %s: %w", summary.RunID, context.Canceled)
	case summary.Failed() > 0:
		console.Errorf("%d of %d projects failed", summary.Failed(), len(summary.Results))
		return errors.Errorf("%w: %d of %d", ErrJobsFailed, summary.Failed(), len(summary.Results))
	}

	console.Successf("saved %d project(s)", summary.Succeeded())
	return nil
}

func finished(jobs []status.JobInfo) int {
	n := 0
	for _, j := range jobs {
		if j.Stage.Terminal() {
			n++
		}
	}
	return n
}
