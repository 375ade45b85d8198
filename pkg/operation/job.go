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
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sb3fetch/pkg/config"
	"github.com/walteh/sb3fetch/pkg/fault"
	"github.com/walteh/sb3fetch/pkg/provider"
	"github.com/walteh/sb3fetch/pkg/status"
	"github.com/walteh/sb3fetch/pkg/transport"
)

// 🎬 Job acquires one project. A job owns its project state and output file
// and shares nothing mutable with other jobs.
type Job struct {
	Index   int
	Locator string

	registry  *provider.Registry
	fetcher   Fetcher
	assembler *Assembler
	cfg       *config.Config
	names     *names
	emit      func(status.Event)

	stage  status.Stage
	result Result
}

// 🏃 Run drives the job from Idle to a terminal stage and returns its result.
// Run never returns an error: failures are part of the result.
func (j *Job) Run(ctx context.Context) Result {
	start := time.Now()
	logger := zerolog.Ctx(ctx).With().Int("job", j.Index).Str("locator", j.Locator).Logger()
	ctx = logger.WithContext(ctx)

	j.result = Result{Index: j.Index, Locator: j.Locator}
	j.stage = status.StageIdle
	j.send(status.EventTransition, "queued", nil)

	path, err := j.run(ctx)
	j.finish(ctx, path, err)

	j.result.Elapsed = time.Since(start)
	return j.result
}

func (j *Job) run(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Errorf("starting job: %w", err)
	}

	sel, err := j.registry.Select(ctx, j.Locator)
	if err != nil {
		return "", err
	}
	d := sel.Provider.Describe()
	j.result.Provider = d.Name
	j.result.ID = sel.ID

	logger := zerolog.Ctx(ctx).With().Str("provider", d.Name).Str("id", sel.ID).Logger()
	ctx = logger.WithContext(ctx)

	project := &provider.Project{ID: sel.ID}

	if err := j.advance(ctx, status.StageMetadataFetching, d.DisplayName+" project "+sel.ID); err != nil {
		return "", err
	}
	if err := sel.Provider.FetchMetadata(ctx, project); err != nil {
		return "", errors.Errorf("fetching metadata: %w", err)
	}
	j.result.Title = project.Title

	payload, err := j.content(ctx, d, project)
	if err != nil {
		return "", err
	}

	if err := j.advance(ctx, status.StageDecoding, humanize.Bytes(uint64(len(payload)))); err != nil {
		return "", err
	}
	decoded, err := sel.Provider.Decode(project, payload)
	if err != nil {
		return "", errors.Errorf("decoding payload: %w", err)
	}

	if err := j.advance(ctx, status.StageAssembling, project.Title); err != nil {
		return "", err
	}
	return j.write(ctx, d, project, decoded)
}

func (j *Job) content(ctx context.Context, d provider.Descriptor, project *provider.Project) ([]byte, error) {
	if project.HasPayload() {
		if err := j.advance(ctx, status.StageContentFetching, "payload arrived with metadata"); err != nil {
			return nil, err
		}
		return project.Payload, nil
	}

	if err := j.advance(ctx, status.StageContentFetching, project.URL); err != nil {
		return nil, err
	}
	if project.URL == "" {
		return nil, fault.Formatf("fetching content: %s resolved no payload url", d.Name)
	}

	req := transport.Get(project.URL)
	req.Referer = d.Referer
	payload, err := j.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, errors.Errorf("fetching content: %w", err)
	}
	project.Payload = payload
	return payload, nil
}

// 💾 write stores the archive, or only the manifest when assets are disabled.
// A file that could not be completed is removed.
func (j *Job) write(ctx context.Context, d provider.Descriptor, project *provider.Project, decoded []byte) (string, error) {
	stem := SanitizeTitle(project.Title, project.ID)

	if j.cfg.NoAssets {
		manifest, _, err := readManifest(decoded)
		if err != nil {
			return "", err
		}
		path := j.names.reserve(stem, ".json")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", errors.Errorf("creating output directory: %w", err)
		}
		if err := os.WriteFile(path, manifest, 0o644); err != nil {
			_ = os.Remove(path)
			return "", errors.Errorf("writing %s: %w", path, err)
		}
		return path, nil
	}

	path := j.names.reserve(stem, ".sb3")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Errorf("creating %s: %w", path, err)
	}

	stage := j.stage
	report, err := j.assembler.Assemble(ctx, f, decoded, d, func(t status.EventType, detail string) {
		j.emit(j.event(t, stage, detail, nil))
	})
	j.result.Assets = report

	closeErr := f.Close()
	if err == nil && closeErr != nil {
		err = errors.Errorf("closing %s: %w", path, closeErr)
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			zerolog.Ctx(ctx).Warn().Err(rmErr).Str("path", path).Msg("removing incomplete archive")
		}
		return "", err
	}
	return path, nil
}

// advance is a suspension point: a canceled context stops the job before it
// enters the next stage.
func (j *Job) advance(ctx context.Context, to status.Stage, detail string) error {
	if err := ctx.Err(); err != nil {
		return errors.Errorf("entering %s: %w", to, err)
	}
	return j.transition(to, detail, nil)
}

func (j *Job) transition(to status.Stage, detail string, cause error) error {
	if !status.CanAdvance(j.stage, to) {
		return errors.Errorf("invalid transition from %s to %s", j.stage, to)
	}
	j.stage = to
	j.send(status.EventTransition, detail, cause)
	return nil
}

func (j *Job) finish(ctx context.Context, path string, err error) {
	if err == nil {
		err = j.transition(status.StageDone, path, nil)
		if err == nil {
			j.result.Stage = status.StageDone
			j.result.Path = path
			return
		}
	}

	stage := status.StageFailed
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		stage = status.StageCanceled
	}
	if tErr := j.transition(stage, err.Error(), err); tErr != nil {
		zerolog.Ctx(ctx).Error().Err(tErr).Msg("ending job")
	}
	j.result.Stage = stage
	j.result.Err = err

	if stage == status.StageFailed {
		zerolog.Ctx(ctx).Debug().Err(err).Str("kind", fault.KindOf(err).String()).Msg("job failed")
	}
}

func (j *Job) send(t status.EventType, detail string, cause error) {
	j.emit(j.event(t, j.stage, detail, cause))
}

func (j *Job) event(t status.EventType, stage status.Stage, detail string, cause error) status.Event {
	return status.Event{
		Job:    j.Index,
		Label:  j.Locator,
		Type:   t,
		Stage:  stage,
		Detail: detail,
		Err:    cause,
	}
}
