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

// Package catalog is the composition root of the platform providers. It
// registers every platform pattern in a fixed order and applies the provider
// overrides of the configuration.
package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sb3fetch/pkg/config"
	"github.com/walteh/sb3fetch/pkg/provider"
	"github.com/walteh/sb3fetch/pkg/provider/ccw"
	"github.com/walteh/sb3fetch/pkg/provider/clipcc"
	"github.com/walteh/sb3fetch/pkg/provider/cocrea"
	"github.com/walteh/sb3fetch/pkg/provider/fortycode"
	"github.com/walteh/sb3fetch/pkg/provider/gitblock"
	"github.com/walteh/sb3fetch/pkg/provider/scratch"
	"github.com/walteh/sb3fetch/pkg/provider/scratchcn"
	"github.com/walteh/sb3fetch/pkg/provider/xmw"
	"github.com/walteh/sb3fetch/pkg/transport"
)

// 📚 Platform is one supported platform
type Platform struct {
	Pattern    string
	Descriptor provider.Descriptor

	factory func(client *transport.Client) provider.Factory
}

// platforms in selection order: the first matching pattern wins.
var platforms = []Platform{
	{
		Pattern:    ccw.Pattern,
		Descriptor: ccw.Descriptor(),
		factory: func(c *transport.Client) provider.Factory {
			return ccw.Factory(c, ccw.Options{})
		},
	},
	{
		Pattern:    clipcc.Pattern,
		Descriptor: clipcc.Descriptor(),
		factory: func(c *transport.Client) provider.Factory {
			return clipcc.Factory(c, clipcc.Options{})
		},
	},
	{
		Pattern:    xmw.Pattern,
		Descriptor: xmw.Descriptor(),
		factory: func(c *transport.Client) provider.Factory {
			return xmw.Factory(c, xmw.Options{})
		},
	},
	{
		Pattern:    cocrea.Pattern,
		Descriptor: cocrea.Descriptor(),
		factory: func(c *transport.Client) provider.Factory {
			return cocrea.Factory(c, cocrea.Options{})
		},
	},
	{
		Pattern:    fortycode.Pattern,
		Descriptor: fortycode.Descriptor(),
		factory: func(c *transport.Client) provider.Factory {
			return fortycode.Factory(c, fortycode.Options{})
		},
	},
	{
		Pattern:    gitblock.Pattern,
		Descriptor: gitblock.Descriptor(),
		factory: func(c *transport.Client) provider.Factory {
			return gitblock.Factory(c, gitblock.Options{})
		},
	},
	{
		Pattern:    scratch.Pattern,
		Descriptor: scratch.Descriptor(),
		factory: func(c *transport.Client) provider.Factory {
			return scratch.Factory(c, scratch.Options{})
		},
	},
	{
		Pattern:    scratchcn.Pattern,
		Descriptor: scratchcn.Descriptor(),
		factory: func(c *transport.Client) provider.Factory {
			return scratchcn.Factory(c, scratchcn.Options{})
		},
	},
}

// Platforms lists every supported platform in selection order.
func Platforms() []Platform {
	out := make([]Platform, len(platforms))
	copy(out, platforms)
	return out
}

// Names lists the platform names in selection order.
func Names() []string {
	out := make([]string, len(platforms))
	for i, p := range platforms {
		out[i] = p.Descriptor.Name
	}
	return out
}

// 🏗️ New builds the registry for a run. Disabled platforms are left out and
// asset endpoint overrides wrap the platform provider. Overrides naming an
// unknown platform are rejected.
func New(ctx context.Context, cfg *config.Config, client *transport.Client) (*provider.Registry, error) {
	if err := checkOverrides(cfg); err != nil {
		return nil, err
	}

	reg := provider.NewRegistry()
	for _, p := range platforms {
		name := p.Descriptor.Name
		override, _ := cfg.Override(name)
		if override.Disabled {
			zerolog.Ctx(ctx).Debug().Str("provider", name).Msg("provider disabled by config")
			continue
		}

		factory := p.factory(client)
		if assets := (provider.AssetEndpoints{Costumes: override.CostumeURL, Sounds: override.SoundURL}); assets != (provider.AssetEndpoints{}) {
			factory = withAssets(factory, assets)
		}
		if err := reg.Register(p.Pattern, factory); err != nil {
			return nil, errors.Errorf("registering %s: %w", name, err)
		}
	}
	return reg, nil
}

func withAssets(f provider.Factory, assets provider.AssetEndpoints) provider.Factory {
	return func(ctx context.Context) (provider.Provider, error) {
		p, err := f(ctx)
		if err != nil {
			return nil, err
		}
		return provider.WithAssets(p, assets), nil
	}
}

func checkOverrides(cfg *config.Config) error {
	known := map[string]bool{}
	for _, name := range Names() {
		known[name] = true
	}

	var unknown []string
	for _, o := range cfg.Providers {
		if !known[o.Name] {
			unknown = append(unknown, o.Name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return errors.Errorf("unknown provider %s in config; known providers are %s",
		strings.Join(unknown, ", "), strings.Join(Names(), ", "))
}
