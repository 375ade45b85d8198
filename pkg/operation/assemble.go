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
	"io"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/sb3fetch/pkg/config"
	"github.com/walteh/sb3fetch/pkg/fault"
	"github.com/walteh/sb3fetch/pkg/provider"
	"github.com/walteh/sb3fetch/pkg/sb3"
	"github.com/walteh/sb3fetch/pkg/status"
	"github.com/walteh/sb3fetch/pkg/transport"
)

// 📦 Report counts what happened to the assets of one project. Under
// config.PartialFail the first failure stops the remaining fetches, so Failed
// holds only the failures seen before that.
type Report struct {
	Total    int      // Unique assets referenced by the manifest
	Stored   int      // Written to the archive
	Failed   []string // Filenames whose fetch failed, in manifest order
	Warnings int      // Warning events emitted
}

// Notify receives in-stage events from the assembler.
type Notify func(t status.EventType, detail string)

// 🧩 Assembler turns a decoded payload into a project archive
type Assembler struct {
	Fetcher    Fetcher
	Policy     config.PartialPolicy
	MaxFetches int      // Concurrent asset fetches, 0 is unbounded
	Allowed    []string // Extension id globs that raise no warning
}

// NewAssembler configures an assembler from cfg.
func NewAssembler(f Fetcher, cfg *config.Config) *Assembler {
	return &Assembler{
		Fetcher:    f,
		Policy:     cfg.PartialAssets,
		MaxFetches: cfg.MaxAssetFetches,
		Allowed:    cfg.AllowedExtensions,
	}
}

// 🏗️ Assemble writes a complete archive for payload to w. The manifest is
// written first, then every unique asset fetched from d's endpoints.
func (a *Assembler) Assemble(ctx context.Context, w io.Writer, payload []byte, d provider.Descriptor, notify Notify) (Report, error) {
	var report Report
	if notify == nil {
		notify = func(status.EventType, string) {}
	}

	manifestBytes, manifest, err := readManifest(payload)
	if err != nil {
		return report, err
	}

	assets, err := manifest.UniqueAssets()
	if err != nil {
		return report, err
	}
	report.Total = len(assets)

	if ext := manifest.CommunityExtensions(a.Allowed); len(ext) > 0 {
		report.Warnings++
		notify(status.EventWarning, "unsupported extensions: "+strings.Join(ext, ", "))
	}

	writer := sb3.NewWriter(w)
	if err := writer.WriteManifest(manifestBytes); err != nil {
		return report, errors.Errorf("writing manifest: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if a.MaxFetches > 0 {
		g.SetLimit(a.MaxFetches)
	}

	c := newCommitter(writer, assets)
	for i, asset := range assets {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			data, err := a.fetch(gctx, d, asset)
			if err != nil && gctx.Err() != nil && errors.Is(err, context.Canceled) {
				return nil
			}
			if err != nil {
				zerolog.Ctx(ctx).Debug().Err(err).Str("asset", asset.Filename).Msg("asset fetch failed")
			}

			stored, werr := c.resolve(gctx, i, data, err)
			for _, s := range stored {
				notify(status.EventAsset, s)
			}
			if werr != nil {
				return werr
			}
			if err != nil && a.Policy == config.PartialFail {
				return err
			}
			return nil
		})
	}

	groupErr := g.Wait()

	var failed []error
	report.Stored, report.Failed, failed = c.outcome()

	if err := ctx.Err(); err != nil {
		return report, errors.Errorf("assembling archive: %w", err)
	}

	switch a.Policy {
	case config.PartialAllow:
		for i, err := range failed {
			report.Warnings++
			notify(status.EventWarning, "skipped "+report.Failed[i]+": "+err.Error())
		}
	case config.PartialAny:
		if report.Total > 0 && report.Stored == 0 && len(failed) > 0 {
			return report, fault.PartialAssembly("assembling archive", errors.Errorf("none of %d assets could be fetched: %w", report.Total, failed[0]))
		}
		for i := range failed {
			report.Warnings++
			notify(status.EventWarning, "skipped "+report.Failed[i])
		}
	default:
		if len(failed) > 0 {
			return report, fault.PartialAssembly("assembling archive", errors.Errorf("at least %d of %d assets failed: %w", len(failed), report.Total, failed[0]))
		}
	}
	if groupErr != nil {
		return report, groupErr
	}

	if err := writer.Close(); err != nil {
		return report, errors.Errorf("sealing archive: %w", err)
	}
	return report, nil
}

// committer writes fetched assets to the archive in manifest order. An asset
// is written once every asset before it has been fetched or has failed.
type committer struct {
	mu     sync.Mutex
	writer *sb3.Writer
	assets []sb3.Asset
	slots  []slot
	next   int
	stored int
}

type slot struct {
	ready bool
	data  []byte
	err   error
}

func newCommitter(w *sb3.Writer, assets []sb3.Asset) *committer {
	return &committer{writer: w, assets: assets, slots: make([]slot, len(assets))}
}

// resolve records the outcome of asset i and writes every asset that is now
// next in line. It returns one detail line per asset it stored. Nothing is
// written once ctx is done.
func (c *committer) resolve(ctx context.Context, i int, data []byte, fetchErr error) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.slots[i] = slot{ready: true, data: data, err: fetchErr}

	var stored []string
	for c.next < len(c.slots) && c.slots[c.next].ready {
		s := &c.slots[c.next]
		if s.err == nil {
			name := c.assets[c.next].Filename
			added, err := c.writer.Add(ctx, name, s.data)
			if err != nil {
				if ctx.Err() != nil {
					return stored, nil
				}
				return stored, errors.Errorf("storing %s: %w", name, err)
			}
			if added {
				c.stored++
				stored = append(stored, name+" ("+humanize.Bytes(uint64(len(s.data)))+")")
			}
		}
		s.data = nil
		c.next++
	}
	return stored, nil
}

// outcome returns the stored count and the failed filenames with their causes.
func (c *committer) outcome() (int, []string, []error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		names []string
		errs  []error
	)
	for i, s := range c.slots {
		if s.ready && s.err != nil {
			names = append(names, c.assets[i].Filename)
			errs = append(errs, s.err)
		}
	}
	return c.stored, names, errs
}

func (a *Assembler) fetch(ctx context.Context, d provider.Descriptor, asset sb3.Asset) ([]byte, error) {
	req := transport.Get(d.Assets.URL(asset))
	req.Referer = d.Referer
	data, err := a.Fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, errors.Errorf("fetching %s %s: %w", asset.Kind, asset.Filename, err)
	}
	return data, nil
}

func readManifest(payload []byte) ([]byte, *sb3.Manifest, error) {
	raw, err := sb3.ManifestBytes(payload)
	if err != nil {
		return nil, nil, err
	}
	m, err := sb3.ParseManifest(raw)
	if err != nil {
		return nil, nil, err
	}
	return raw, m, nil
}
