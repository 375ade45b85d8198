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
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sb3fetch/pkg/config"
	"github.com/walteh/sb3fetch/pkg/provider"
	"github.com/walteh/sb3fetch/pkg/status"
	"github.com/walteh/sb3fetch/pkg/transport"
)

// 🌐 Fetcher performs one request. *transport.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, r transport.Request) ([]byte, error)
}

var _ Fetcher = (*transport.Client)(nil)

// 🔧 Options contains what a run needs
type Options struct {
	// Config is the validated run configuration
	Config *config.Config
	// Registry resolves locators to providers
	Registry *provider.Registry
	// Fetcher downloads payloads and assets
	Fetcher Fetcher
	// Sink receives every event after the run's board has seen it. Nil discards.
	Sink status.Sink
}

func (o Options) validate() error {
	if o.Config == nil {
		return errors.Errorf("config is required")
	}
	if o.Registry == nil {
		return errors.Errorf("registry is required")
	}
	if o.Fetcher == nil {
		return errors.Errorf("fetcher is required")
	}
	return nil
}

// 📋 Result is the outcome of one job
type Result struct {
	Index    int          // Position of the locator on the command line
	Locator  string       // As given
	Provider string       // Descriptor name, empty when selection failed
	ID       string       // Project id extracted from the locator
	Title    string       // Project title, empty before metadata
	Stage    status.Stage // Terminal stage
	Path     string       // Output file, empty unless Done
	Err      error        // Set for Failed and Canceled
	Assets   Report       // Asset counts, zero in manifest-only mode
	Elapsed  time.Duration
}

// 📊 Summary is the outcome of a whole run
type Summary struct {
	RunID    string
	Results  []Result // In locator order
	Canceled bool     // The run context was canceled before every job finished
	Jobs     []status.JobInfo
}

// Failed counts jobs that ended in StageFailed.
func (s *Summary) Failed() int {
	return s.count(status.StageFailed)
}

// Succeeded counts jobs that ended in StageDone.
func (s *Summary) Succeeded() int {
	return s.count(status.StageDone)
}

func (s *Summary) count(stage status.Stage) int {
	n := 0
	for _, r := range s.Results {
		if r.Stage == stage {
			n++
		}
	}
	return n
}
