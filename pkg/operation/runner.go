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

package operation

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/semaphore"

	"github.com/walteh/sb3fetch/pkg/fault"
	"github.com/walteh/sb3fetch/pkg/status"
)

// events buffered per job before producers block on the sink
const eventsPerJob = 16

// 🏃 Runner starts one job per locator and waits for all of them
type Runner struct {
	opts      Options
	assembler *Assembler
}

// 🏗️ NewRunner creates a new runner
func NewRunner(opts Options) (*Runner, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Sink == nil {
		opts.Sink = status.Discard
	}
	return &Runner{
		opts:      opts,
		assembler: NewAssembler(opts.Fetcher, opts.Config),
	}, nil
}

// 🗺️ Plan checks every locator against the registry. All locators no provider
// matches are reported together and nothing is built.
func (r *Runner) Plan(locators []string) error {
	if len(locators) == 0 {
		return errors.Errorf("no locators given")
	}

	var invalid []string
	for _, loc := range locators {
		if !r.opts.Registry.IsValid(loc) {
			invalid = append(invalid, strconv.Quote(loc))
		}
	}
	if len(invalid) > 0 {
		return fault.Resolution("planning run", errors.Errorf("no provider matches %s", strings.Join(invalid, ", ")))
	}
	return nil
}

// 🏃 Run executes every job. It returns once each job is terminal; a failing
// job never stops the others. The only error is a failed Plan.
func (r *Runner) Run(ctx context.Context, locators []string) (*Summary, error) {
	if err := r.Plan(locators); err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:   uuid.NewString(),
		Results: make([]Result, len(locators)),
	}
	logger := zerolog.Ctx(ctx).With().Str("run_id", summary.RunID).Logger()
	ctx = logger.WithContext(ctx)
	logger.Debug().Int("jobs", len(locators)).Int("max_jobs", r.opts.Config.MaxJobs).Msg("starting run")

	board := status.NewBoard(r.opts.Sink)
	reporter := status.NewReporter(board, len(locators)*eventsPerJob)
	names := newNames(r.opts.Config.OutputDir)

	var sem *semaphore.Weighted
	if r.opts.Config.MaxJobs > 0 {
		sem = semaphore.NewWeighted(int64(r.opts.Config.MaxJobs))
	}

	var wg sync.WaitGroup
	for i, loc := range locators {
		job := &Job{
			Index:     i,
			Locator:   loc,
			registry:  r.opts.Registry,
			fetcher:   r.opts.Fetcher,
			assembler: r.assembler,
			cfg:       r.opts.Config,
			names:     names,
			emit:      reporter.Emit,
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if sem != nil {
				// a failed Acquire means ctx is done and the job cancels on entry
				if err := sem.Acquire(ctx, 1); err == nil {
					defer sem.Release(1)
				}
			}
			summary.Results[i] = job.Run(ctx)
		}()
	}

	wg.Wait()
	reporter.Close()

	summary.Canceled = ctx.Err() != nil
	summary.Jobs = board.Snapshot()

	logger.Debug().
		Int("succeeded", summary.Succeeded()).
		Int("failed", summary.Failed()).
		Bool("canceled", summary.Canceled).
		Msg("run finished")

	return summary, nil
}
