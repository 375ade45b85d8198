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
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sb3fetch/cmd/sb3fetch/commands"
	"github.com/walteh/sb3fetch/cmd/sb3fetch/opts"
	"github.com/walteh/sb3fetch/pkg/config"
	"github.com/walteh/sb3fetch/pkg/fault"
	"github.com/walteh/sb3fetch/pkg/testutils"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(append([]string{}, args...))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(testutils.Context(t))
	return stdout.String(), stderr.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: exitOK},
		{name: "unknown locator", err: fault.Resolution("planning run", errors.New("no provider matches")), want: exitBadLocator},
		{name: "interrupted", err: errors.Errorf("run x: %w", context.Canceled), want: exitInterrupted},
		{name: "failed jobs", err: errors.Errorf("%w: 1 of 2", commands.ErrJobsFailed), want: exitFailed},
		{name: "anything else", err: errors.New("boom"), want: exitFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	report(&buf, errors.Errorf("%w: 1 of 1", commands.ErrJobsFailed), exitFailed)
	assert.Empty(t, buf.String(), "job failures are already in the summary")

	report(&buf, errors.New("loading config: nope"), exitFailed)
	assert.Contains(t, buf.String(), "loading config: nope")
}

func TestRootRejectsUnknownLocators(t *testing.T) {
	dir := t.TempDir()
	stdout, _, err := execute(t, "-o", dir, "https://scratch.mit.edu/projects/104", "unknown.example/x")

	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrResolution)
	assert.Equal(t, exitBadLocator, exitCode(err))
	assert.Contains(t, err.Error(), `"unknown.example/x"`)
	assert.NotContains(t, err.Error(), "scratch.mit.edu", "valid locators are not reported")
	assert.Empty(t, stdout, "nothing starts")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRootRequiresLocator(t *testing.T) {
	_, _, err := execute(t)
	require.Error(t, err)
	assert.Equal(t, exitFailed, exitCode(err))
}

func TestLoadConfig(t *testing.T) {
	ctx := testutils.Context(t)
	path := filepath.Join(t.TempDir(), "sb3fetch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output_dir: from-file\nmax_jobs: 3\nno_assets: true\n"), 0o644))

	tests := []struct {
		name    string
		config  string
		args    []string
		check   func(t *testing.T, cfg *config.Config)
		wantErr string
	}{
		{
			name: "defaults without a file",
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, ".", cfg.OutputDir)
				assert.Equal(t, config.PartialFail, cfg.PartialAssets)
				assert.Zero(t, cfg.MaxJobs)
			},
		},
		{
			name:   "file values",
			config: path,
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "from-file", cfg.OutputDir)
				assert.Equal(t, 3, cfg.MaxJobs)
				assert.True(t, cfg.NoAssets)
			},
		},
		{
			name:   "flags win over the file",
			config: path,
			args:   []string{"--jobs", "5", "--partial", "any", "-o", "from-flag", "--no-assets=false", "--asset-fetches", "2"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "from-flag", cfg.OutputDir)
				assert.Equal(t, 5, cfg.MaxJobs)
				assert.Equal(t, 2, cfg.MaxAssetFetches)
				assert.Equal(t, config.PartialAny, cfg.PartialAssets)
				assert.False(t, cfg.NoAssets)
			},
		},
		{
			name:    "bad policy",
			args:    []string{"--partial", "sometimes"},
			wantErr: "partial_assets",
		},
		{
			name:    "missing file",
			config:  filepath.Join(t.TempDir(), "missing.yaml"),
			wantErr: "loading config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			root := &opts.RootOpts{ConfigFile: tt.config}
			fetch := &opts.FetchOpts{}
			addFetchFlags(cmd, fetch)
			require.NoError(t, cmd.ParseFlags(tt.args))

			cfg, err := loadConfig(ctx, cmd, root, fetch)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestProvidersCommand(t *testing.T) {
	stdout, _, err := execute(t, "providers", "--patterns")
	require.NoError(t, err)

	for _, want := range []string{"scratch", "scratchcn", "40code", "共创世界", `gitblock\.cn`} {
		assert.Contains(t, stdout, want)
	}
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version", "--json")
	require.NoError(t, err)

	var info VersionInfo
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)

	stdout, _, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "sb3fetch version info")
}

func TestSetupLogging(t *testing.T) {
	var buf bytes.Buffer

	ctx := setupLogging(context.Background(), &buf, false)
	assert.Equal(t, zerolog.WarnLevel, zerolog.Ctx(ctx).GetLevel())

	ctx = setupLogging(context.Background(), &buf, true)
	assert.Equal(t, zerolog.DebugLevel, zerolog.Ctx(ctx).GetLevel())
}
