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

package config

import (
	"context"
	"os"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🧩 PartialPolicy decides what a failed asset fetch does to a job
type PartialPolicy string

const (
	PartialFail  PartialPolicy = "fail"  // any failed asset fails the job
	PartialAny   PartialPolicy = "any"   // the job fails only when no asset could be stored
	PartialAllow PartialPolicy = "allow" // failed assets are only reported
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 60 * time.Second

// 🔀 ProviderOverride adjusts one platform
type ProviderOverride struct {
	Name       string `json:"name" yaml:"name" toml:"name" hcl:"name,label"`
	CostumeURL string `json:"costume_url,omitempty" yaml:"costume_url,omitempty" toml:"costume_url,omitempty" hcl:"costume_url,optional"`
	SoundURL   string `json:"sound_url,omitempty" yaml:"sound_url,omitempty" toml:"sound_url,omitempty" hcl:"sound_url,optional"`
	Disabled   bool   `json:"disabled,omitempty" yaml:"disabled,omitempty" toml:"disabled,omitempty" hcl:"disabled,optional"`
}

// 📚 Config represents the complete configuration
type Config struct {
	OutputDir         string             `json:"output_dir,omitempty" yaml:"output_dir,omitempty" toml:"output_dir,omitempty" hcl:"output_dir,optional"`
	NoAssets          bool               `json:"no_assets,omitempty" yaml:"no_assets,omitempty" toml:"no_assets,omitempty" hcl:"no_assets,optional"`
	PartialAssets     PartialPolicy      `json:"partial_assets,omitempty" yaml:"partial_assets,omitempty" toml:"partial_assets,omitempty" hcl:"partial_assets,optional"`
	MaxJobs           int                `json:"max_jobs,omitempty" yaml:"max_jobs,omitempty" toml:"max_jobs,omitempty" hcl:"max_jobs,optional"`
	MaxAssetFetches   int                `json:"max_asset_fetches,omitempty" yaml:"max_asset_fetches,omitempty" toml:"max_asset_fetches,omitempty" hcl:"max_asset_fetches,optional"`
	Timeout           string             `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty" hcl:"timeout,optional"`
	UserAgent         string             `json:"user_agent,omitempty" yaml:"user_agent,omitempty" toml:"user_agent,omitempty" hcl:"user_agent,optional"`
	RequestsPerSecond float64            `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty" toml:"requests_per_second,omitempty" hcl:"requests_per_second,optional"`
	AllowedExtensions []string           `json:"allowed_extensions,omitempty" yaml:"allowed_extensions,omitempty" toml:"allowed_extensions,omitempty" hcl:"allowed_extensions,optional"`
	Providers         []ProviderOverride `json:"providers,omitempty" yaml:"providers,omitempty" toml:"providers,omitempty" hcl:"provider,block"`

	timeout time.Duration
}

// Default returns the configuration used without a config file.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

// 🔍 Validate checks the configuration and fills in defaults
func (cfg *Config) Validate() error {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}

	switch cfg.PartialAssets {
	case "":
		cfg.PartialAssets = PartialFail
	case PartialFail, PartialAny, PartialAllow:
	default:
		return errors.Errorf("partial_assets must be one of fail, any, allow; got %q", cfg.PartialAssets)
	}

	if cfg.MaxJobs < 0 {
		return errors.Errorf("max_jobs must not be negative")
	}
	if cfg.MaxAssetFetches < 0 {
		return errors.Errorf("max_asset_fetches must not be negative")
	}
	if cfg.RequestsPerSecond < 0 {
		return errors.Errorf("requests_per_second must not be negative")
	}

	cfg.timeout = DefaultTimeout
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return errors.Errorf("parsing timeout: %w", err)
		}
		if d < 0 {
			return errors.Errorf("timeout must not be negative")
		}
		cfg.timeout = d
	}

	for _, pattern := range cfg.AllowedExtensions {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Errorf("invalid allowed_extensions pattern %q", pattern)
		}
	}

	seen := map[string]bool{}
	for _, p := range cfg.Providers {
		if p.Name == "" {
			return errors.Errorf("provider override without a name")
		}
		if seen[p.Name] {
			return errors.Errorf("provider %q is configured twice", p.Name)
		}
		seen[p.Name] = true
	}

	return nil
}

// RequestTimeout is the parsed Timeout, valid after Validate.
func (cfg *Config) RequestTimeout() time.Duration {
	return cfg.timeout
}

// Override returns the override for the named provider, if any.
func (cfg *Config) Override(name string) (ProviderOverride, bool) {
	for _, p := range cfg.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderOverride{}, false
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}
