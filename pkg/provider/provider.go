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

package provider

import (
	"context"

	"github.com/walteh/sb3fetch/pkg/sb3"
)

// 🔌 Provider is one platform's acquisition strategy
type Provider interface {
	// 📇 Describe returns the platform's static description
	Describe() Descriptor

	// 🌐 FetchMetadata resolves URL, Title and Authors, and may set Payload directly
	FetchMetadata(ctx context.Context, p *Project) error

	// 🔓 Decode turns the fetched payload into a manifest or a project container.
	// It never touches the network; p is read only.
	Decode(p *Project, payload []byte) ([]byte, error)
}

// 🏭 Factory creates a provider the first time its pattern is selected
type Factory func(ctx context.Context) (Provider, error)

// 📇 Descriptor is the static description of a platform
type Descriptor struct {
	Name        string         // Stable identifier used in config and logs
	DisplayName string         // Human facing platform name
	Referer     string         // Referer sent with every request of this platform
	Assets      AssetEndpoints // Where costumes and sounds are served
}

// 🗂️ AssetEndpoints are URL prefixes for asset downloads
type AssetEndpoints struct {
	Costumes string
	Sounds   string
}

// SameAssets serves costumes and sounds from one prefix.
func SameAssets(prefix string) AssetEndpoints {
	return AssetEndpoints{Costumes: prefix, Sounds: prefix}
}

// SplitAssets serves costumes and sounds from separate prefixes.
func SplitAssets(costumes, sounds string) AssetEndpoints {
	return AssetEndpoints{Costumes: costumes, Sounds: sounds}
}

// URL returns the download URL of an asset.
func (e AssetEndpoints) URL(a sb3.Asset) string {
	if a.Kind == sb3.Sound {
		return e.Sounds + a.Filename
	}
	return e.Costumes + a.Filename
}

// 📦 Project carries what one job learns about its project
type Project struct {
	ID      string   // Extracted from the locator
	URL     string   // Payload location, empty until metadata is fetched
	Title   string   // Empty until metadata is fetched
	Authors []string // May stay empty
	Payload []byte   // Nil until fetched
}

// HasPayload reports whether the payload has been fetched.
func (p *Project) HasPayload() bool {
	return p.Payload != nil
}

type withAssets struct {
	Provider
	assets AssetEndpoints
}

func (w withAssets) Describe() Descriptor {
	d := w.Provider.Describe()
	if w.assets.Costumes != "" {
		d.Assets.Costumes = w.assets.Costumes
	}
	if w.assets.Sounds != "" {
		d.Assets.Sounds = w.assets.Sounds
	}
	return d
}

// 🔀 WithAssets overrides the asset endpoints of p. Empty fields keep the platform default.
func WithAssets(p Provider, assets AssetEndpoints) Provider {
	if assets == (AssetEndpoints{}) {
		return p
	}
	return withAssets{Provider: p, assets: assets}
}
