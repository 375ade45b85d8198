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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sb3fetch/pkg/config"
	"github.com/walteh/sb3fetch/pkg/fault"
	"github.com/walteh/sb3fetch/pkg/provider"
	"github.com/walteh/sb3fetch/pkg/status"
	"github.com/walteh/sb3fetch/pkg/testutils"
	"github.com/walteh/sb3fetch/pkg/transport"
)

const payloadURL = "https://a.example/payload/7"

func newTestJob(t *testing.T, p provider.Provider, fetcher Fetcher, cfg *config.Config, rec *recorder) *Job {
	t.Helper()
	reg := provider.NewRegistry()
	reg.MustRegister(`^platformA/project/(?P<id>\d+)$`, func(context.Context) (provider.Provider, error) {
		return p, nil
	})
	return &Job{
		Index:     0,
		Locator:   "platformA/project/7",
		registry:  reg,
		fetcher:   fetcher,
		assembler: NewAssembler(fetcher, cfg),
		cfg:       cfg,
		names:     newNames(cfg.OutputDir),
		emit:      rec.Handle,
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	return cfg
}

func mockProvider(metadata func(p *provider.Project)) *testutils.MockProvider {
	mp := &testutils.MockProvider{}
	mp.On("Describe").Return(testDescriptor)
	mp.On("FetchMetadata", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		metadata(args.Get(1).(*provider.Project))
	}).Return(nil)
	return mp
}

func withPayloadURL(title string) func(p *provider.Project) {
	return func(p *provider.Project) {
		p.Title = title
		p.URL = payloadURL
	}
}

func outputFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err, "reading output dir")
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

var allStages = []status.Stage{
	status.StageIdle,
	status.StageMetadataFetching,
	status.StageContentFetching,
	status.StageDecoding,
	status.StageAssembling,
	status.StageDone,
}

func TestJobSuccess(t *testing.T) {
	ctx := testutils.Context(t)
	cfg := testConfig(t)
	rec := &recorder{}

	bodies := twoAssetBodies()
	bodies[payloadURL] = "encrypted"
	fetcher := newStubFetcher(bodies)

	mp := mockProvider(withPayloadURL("My: Game?"))
	mp.On("Decode", mock.Anything, []byte("encrypted")).Return([]byte(twoAssetManifest), nil)

	res := newTestJob(t, mp, fetcher, cfg, rec).Run(ctx)
	require.NoError(t, res.Err)

	assert.Equal(t, status.StageDone, res.Stage)
	assert.Equal(t, "platformA", res.Provider)
	assert.Equal(t, "7", res.ID)
	assert.Equal(t, "My: Game?", res.Title)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "My Game.sb3"), res.Path)
	assert.Equal(t, Report{Total: 2, Stored: 2}, res.Assets)

	events := rec.job(0)
	assert.Equal(t, allStages, stages(events), "every stage entered once in order")
	assert.Len(t, ofType(events, status.EventAsset), 2)
	assert.Equal(t, "https://a.example/", fetcher.referers[payloadURL], "content request carries the referer")

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	names, _ := readZip(t, data)
	assert.Equal(t, []string{"project.json", "a.svg", "b.wav"}, names)

	mp.AssertExpectations(t)
}

func TestJobPayloadFromMetadata(t *testing.T) {
	ctx := testutils.Context(t)
	cfg := testConfig(t)
	rec := &recorder{}
	fetcher := newStubFetcher(twoAssetBodies())

	mp := mockProvider(func(p *provider.Project) {
		p.Title = "inline"
		p.URL = payloadURL
		p.Payload = []byte(twoAssetManifest)
	})
	mp.On("Decode", mock.Anything, []byte(twoAssetManifest)).Return([]byte(twoAssetManifest), nil)

	res := newTestJob(t, mp, fetcher, cfg, rec).Run(ctx)
	require.NoError(t, res.Err)

	assert.Zero(t, fetcher.count(payloadURL), "no content request when metadata brought the payload")

	events := rec.job(0)
	assert.Equal(t, allStages, stages(events), "content stage is still entered")
	for _, e := range events {
		if e.Stage == status.StageContentFetching {
			assert.Equal(t, "payload arrived with metadata", e.Detail)
		}
	}
}

func TestJobManifestOnly(t *testing.T) {
	ctx := testutils.Context(t)
	cfg := testConfig(t)
	cfg.NoAssets = true
	rec := &recorder{}

	container := testutils.Zip(t, testutils.File{Name: "project.json", Body: twoAssetManifest})
	fetcher := newStubFetcher(map[string]string{payloadURL: string(container)})

	mp := mockProvider(withPayloadURL("only json"))
	mp.On("Decode", mock.Anything, container).Return(container, nil)

	res := newTestJob(t, mp, fetcher, cfg, rec).Run(ctx)
	require.NoError(t, res.Err)

	assert.Equal(t, filepath.Join(cfg.OutputDir, "only json.json"), res.Path)
	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, twoAssetManifest, string(data), "manifest is extracted from the container")
	assert.Equal(t, 1, fetcher.total(), "no asset requests")
}

func TestJobFailures(t *testing.T) {
	tests := []struct {
		name      string
		metadata  func(p *provider.Project)
		decoded   []byte
		decodeErr error
		bodies    map[string]string
		kind      *fault.Error
		reached   status.Stage
	}{
		{
			name:     "content not found",
			metadata: withPayloadURL("gone"),
			bodies:   map[string]string{},
			kind:     fault.ErrTransport,
			reached:  status.StageContentFetching,
		},
		{
			name:     "no payload url",
			metadata: func(p *provider.Project) { p.Title = "nowhere" },
			kind:     fault.ErrFormat,
			reached:  status.StageContentFetching,
		},
		{
			name:      "decode fails",
			metadata:  withPayloadURL("garbled"),
			bodies:    map[string]string{payloadURL: "junk"},
			decodeErr: fault.Formatf("bad padding"),
			kind:      fault.ErrFormat,
			reached:   status.StageDecoding,
		},
		{
			name:     "asset missing",
			metadata: withPayloadURL("half"),
			bodies: map[string]string{
				payloadURL:                         "ok",
				"https://a.example/costumes/a.svg": "<svg/>",
			},
			decoded: []byte(twoAssetManifest),
			kind:    fault.ErrPartialAssembly,
			reached: status.StageAssembling,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testutils.Context(t)
			cfg := testConfig(t)
			rec := &recorder{}

			mp := mockProvider(tt.metadata)
			mp.On("Decode", mock.Anything, mock.Anything).Return(tt.decoded, tt.decodeErr).Maybe()

			res := newTestJob(t, mp, newStubFetcher(tt.bodies), cfg, rec).Run(ctx)

			require.Error(t, res.Err)
			assert.ErrorIs(t, res.Err, tt.kind)
			assert.Equal(t, status.StageFailed, res.Stage)
			assert.Empty(t, res.Path)
			assert.Empty(t, outputFiles(t, cfg.OutputDir), "no output is left behind")

			got := stages(rec.job(0))
			require.GreaterOrEqual(t, len(got), 2)
			assert.Equal(t, tt.reached, got[len(got)-2], "stage the job failed in")
			assert.Equal(t, status.StageFailed, got[len(got)-1], "exactly one terminal event, last")

			last := rec.job(0)[len(rec.job(0))-1]
			assert.Equal(t, res.Err, last.Err, "failure carries the error")
		})
	}
}

func TestJobSelectionFailure(t *testing.T) {
	ctx := testutils.Context(t)
	cfg := testConfig(t)
	rec := &recorder{}

	reg := provider.NewRegistry()
	reg.MustRegister(`^platformA/project/(?P<id>\d+)$`, func(context.Context) (provider.Provider, error) {
		return nil, errors.New("no key material")
	})
	fetcher := newStubFetcher(nil)
	job := &Job{
		Locator:   "platformA/project/7",
		registry:  reg,
		fetcher:   fetcher,
		assembler: NewAssembler(fetcher, cfg),
		cfg:       cfg,
		names:     newNames(cfg.OutputDir),
		emit:      rec.Handle,
	}

	res := job.Run(ctx)
	require.Error(t, res.Err)
	assert.Equal(t, status.StageFailed, res.Stage)
	assert.Equal(t, []status.Stage{status.StageIdle, status.StageFailed}, stages(rec.job(0)))
}

func TestJobCanceled(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(testutils.Context(t))
		cancel()
		cfg := testConfig(t)
		rec := &recorder{}

		mp := &testutils.MockProvider{}
		res := newTestJob(t, mp, newStubFetcher(nil), cfg, rec).Run(ctx)

		assert.Equal(t, status.StageCanceled, res.Stage)
		assert.ErrorIs(t, res.Err, context.Canceled)
		assert.Equal(t, []status.Stage{status.StageIdle, status.StageCanceled}, stages(rec.job(0)))
		mp.AssertNotCalled(t, "FetchMetadata", mock.Anything, mock.Anything)
	})

	t.Run("during content fetch", func(t *testing.T) {
		ctx, cancel := context.WithCancel(testutils.Context(t))
		defer cancel()
		cfg := testConfig(t)
		rec := &recorder{}

		fetcher := newStubFetcher(map[string]string{payloadURL: "x"})
		fetcher.hook = func(context.Context, transport.Request) { cancel() }

		mp := mockProvider(withPayloadURL("stopped"))
		res := newTestJob(t, mp, fetcher, cfg, rec).Run(ctx)

		assert.Equal(t, status.StageCanceled, res.Stage)
		assert.ErrorIs(t, res.Err, context.Canceled)
		assert.Equal(t, []status.Stage{
			status.StageIdle,
			status.StageMetadataFetching,
			status.StageContentFetching,
			status.StageCanceled,
		}, stages(rec.job(0)))
		mp.AssertNotCalled(t, "Decode", mock.Anything, mock.Anything)
	})

	t.Run("during assembly", func(t *testing.T) {
		ctx, cancel := context.WithCancel(testutils.Context(t))
		defer cancel()
		cfg := testConfig(t)
		rec := &recorder{}

		bodies := twoAssetBodies()
		bodies[payloadURL] = "x"
		fetcher := newStubFetcher(bodies)
		fetcher.hook = func(_ context.Context, r transport.Request) {
			if r.URL != payloadURL {
				cancel()
			}
		}

		mp := mockProvider(withPayloadURL("stopped"))
		mp.On("Decode", mock.Anything, mock.Anything).Return([]byte(twoAssetManifest), nil)
		res := newTestJob(t, mp, fetcher, cfg, rec).Run(ctx)

		assert.Equal(t, status.StageCanceled, res.Stage)
		assert.Empty(t, ofType(rec.job(0), status.EventAsset), "no asset stored after cancellation")
		assert.Empty(t, outputFiles(t, cfg.OutputDir), "incomplete archive is removed")
	})
}
