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
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sb3fetch/cmd/sb3fetch/commands"
	"github.com/walteh/sb3fetch/cmd/sb3fetch/opts"
	"github.com/walteh/sb3fetch/pkg/config"
)

// newRootCmd builds the command tree. The root command itself fetches.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &opts.RootOpts{Stdout: stdout, Stderr: stderr}
	fetch := &opts.FetchOpts{}

	cmd := &cobra.Command{
		Use:   "sb3fetch [flags] <locator>...",
		Short: "Download projects from Scratch community platforms as .sb3 archives",
		Long: `sb3fetch downloads projects from Scratch and the Scratch based community
platforms, undoes each platform's payload encoding and writes a standard .sb3
archive holding project.json and every costume and sound it references.

Every locator is checked before anything is downloaded. Run "sb3fetch providers"
to see the supported platforms.`,
		Example: `  sb3fetch https://scratch.mit.edu/projects/104
  sb3fetch -o out --jobs 4 https://www.ccw.site/detail/0123456789abcdef01234567 https://gitblock.cn/Projects/7
  sb3fetch --no-assets --config sb3fetch.hcl https://www.40code.com/#page=work&id=42`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupColor(stdout)
			cmd.SetContext(setupLogging(cmd.Context(), stderr, root.Debug))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx, cmd, root, fetch)
			if err != nil {
				return err
			}
			return commands.Fetch(ctx, root, fetch, cfg, args)
		},
	}

	addRootFlags(cmd, root)
	addFetchFlags(cmd, fetch)

	cmd.AddCommand(
		commands.NewProvidersCmd(root),
		newVersionCmd(root),
	)
	return cmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, o *opts.RootOpts) {
	cmd.PersistentFlags().StringVarP(&o.ConfigFile, "config", "c", "", "config file path (.yaml, .yml, .hcl, .json or .toml)")
	cmd.PersistentFlags().BoolVarP(&o.Debug, "debug", "d", false, "enable debug logging")
}

func addFetchFlags(cmd *cobra.Command, o *opts.FetchOpts) {
	f := cmd.Flags()
	f.StringVarP(&o.OutputDir, "output", "o", "", "directory the archives are written to (default \".\")")
	f.BoolVar(&o.NoAssets, "no-assets", false, "only write the decoded project.json of each project")
	f.StringVar(&o.Partial, "partial", "", "what to do when some assets cannot be downloaded: fail, any or allow (default \"fail\")")
	f.IntVar(&o.MaxJobs, "jobs", 0, "projects downloaded at once, 0 for all")
	f.IntVar(&o.MaxAssetFetches, "asset-fetches", 0, "assets downloaded at once per project, 0 for all")
	f.BoolVar(&o.ShowAssets, "show-assets", false, "print a line for every stored asset")
}

// loadConfig reads the config file, if any, and lets explicitly set flags win.
func loadConfig(ctx context.Context, cmd *cobra.Command, root *opts.RootOpts, fetch *opts.FetchOpts) (*config.Config, error) {
	cfg := &config.Config{}
	if root.ConfigFile != "" {
		loaded, err := config.Load(ctx, root.ConfigFile)
		if err != nil {
			return nil, errors.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.OutputDir = fetch.OutputDir
	}
	if flags.Changed("no-assets") {
		cfg.NoAssets = fetch.NoAssets
	}
	if flags.Changed("partial") {
		cfg.PartialAssets = config.PartialPolicy(fetch.Partial)
	}
	if flags.Changed("jobs") {
		cfg.MaxJobs = fetch.MaxJobs
	}
	if flags.Changed("asset-fetches") {
		cfg.MaxAssetFetches = fetch.MaxAssetFetches
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// setupLogging installs the structured logger. Progress goes to stdout, so
// records stay quiet below warnings unless debugging.
func setupLogging(ctx context.Context, w io.Writer, debug bool) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return logger.WithContext(ctx)
}

func setupColor(w io.Writer) {
	if !isTerminal(w) {
		color.NoColor = true
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
