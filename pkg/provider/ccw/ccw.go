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

// Package ccw fetches projects from ccw.site and decodes the nested container
// format it shares with cocrea.world.
package ccw

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sb3fetch/pkg/decode"
	"github.com/walteh/sb3fetch/pkg/fault"
	"github.com/walteh/sb3fetch/pkg/provider"
	"github.com/walteh/sb3fetch/pkg/sb3"
	"github.com/walteh/sb3fetch/pkg/transport"
)

const (
	Name    = "ccw"
	Pattern = `^((https|http)://)?(www\.)?ccw\.site/detail/(?P<id>[a-z0-9]{24})(\?.*)?`

	// KeyPrefix is prepended to the asset id before the key is base64-decoded.
	KeyPrefix = "KzdnFCBRvq3"

	DefaultDetailURL = "https://community-web.ccw.site/creation/detail"
)

// V2Signature marks containers whose zip signature was swapped out.
var V2Signature = []byte{0x37, 0x7a, 0xbc, 0xaf, 0x09, 0x05, 0x02, 0x07}

var descriptor = provider.Descriptor{
	Name:        Name,
	DisplayName: "共创世界",
	Referer:     "https://www.ccw.site/",
	Assets:      provider.SameAssets("https://m.ccw.site/user_projects_assets/"),
}

// Options overrides the platform endpoints.
type Options struct {
	DetailURL string
	AccessKey string
}

// 🌐 Provider fetches ccw.site projects
type Provider struct {
	client *transport.Client
	opts   Options
}

// New creates a provider using client for every request.
func New(client *transport.Client, opts Options) *Provider {
	if opts.DetailURL == "" {
		opts.DetailURL = DefaultDetailURL
	}
	return &Provider{client: client, opts: opts}
}

// Factory defers New to the first selection.
func Factory(client *transport.Client, opts Options) provider.Factory {
	return func(ctx context.Context) (provider.Provider, error) {
		return New(client, opts), nil
	}
}

func (p *Provider) Describe() provider.Descriptor {
	return descriptor
}

// Descriptor describes the platform without building a provider.
func Descriptor() provider.Descriptor {
	return descriptor
}

func (p *Provider) FetchMetadata(ctx context.Context, proj *provider.Project) error {
	doc, err := p.client.JSON(ctx, transport.Request{
		Method:  http.MethodPost,
		URL:     p.opts.DetailURL,
		Referer: descriptor.Referer,
		JSON:    map[string]string{"oid": proj.ID, "access_key": p.opts.AccessKey},
	})
	if err != nil {
		return errors.Errorf("fetching creation detail: %w", err)
	}

	link := doc.Get("body.creationRelease.projectLink")
	if !link.Exists() || link.String() == "" {
		return fault.Formatf("creation detail of %s has no project link", proj.ID)
	}

	proj.URL = link.String()
	proj.Title = doc.Get("body.title").String()

	zerolog.Ctx(ctx).Debug().Str("id", proj.ID).Str("url", proj.URL).Msg("resolved ccw project")
	return nil
}

func (p *Provider) Decode(proj *provider.Project, payload []byte) ([]byte, error) {
	return DecodeContainer(proj.URL, payload, KeyPrefix)
}

// 📦 DecodeContainer unwraps a ccw style container and returns its plaintext
// project.json.
//
// Three container generations exist: plain zip, zip with the v2 signature, and
// v3, an AES encrypted list of decimal bytes keyed by the project file name.
func DecodeContainer(projectURL string, payload []byte, keyPrefix string) ([]byte, error) {
	var container []byte
	var err error

	switch {
	case sb3.IsContainer(payload):
		container = payload
	case bytes.HasPrefix(payload, V2Signature):
		container, err = decode.PatchSignature(payload, V2Signature)
	default:
		container, err = decodeV3(projectURL, payload, keyPrefix)
	}
	if err != nil {
		return nil, err
	}

	manifest, err := sb3.ReadManifest(container)
	if err != nil {
		return nil, err
	}
	if decode.LooksLikeJSON(manifest) {
		return manifest, nil
	}
	return decode.Transform(manifest)
}

// AssetID returns the last path segment of projectURL up to its first '.'.
func AssetID(projectURL string) (string, error) {
	u, err := url.Parse(projectURL)
	if err != nil {
		return "", fault.Format("parsing project url", err)
	}
	id, _, _ := strings.Cut(path.Base(u.Path), ".")
	if id == "" || id == "/" {
		return "", fault.Formatf("project url %q has no file name", projectURL)
	}
	return id, nil
}

func decodeV3(projectURL string, payload []byte, keyPrefix string) ([]byte, error) {
	assetID, err := AssetID(projectURL)
	if err != nil {
		return nil, err
	}

	input, err := decode.Base64(bytes.TrimSpace(payload))
	if err != nil {
		return nil, err
	}

	key, err := decode.Base64Raw([]byte(keyPrefix + assetID))
	if err != nil {
		return nil, err
	}
	if len(key) < 16 {
		return nil, fault.Formatf("derived key is %d bytes", len(key))
	}

	plain, err := decode.CBC(input, key, key[:16])
	if err != nil {
		return nil, err
	}

	fields := strings.Split(string(plain), ",")
	out := make([]byte, 0, len(fields))
	for _, f := range fields {
		b, err := strconv.ParseUint(strings.TrimSpace(f), 10, 8)
		if err != nil {
			return nil, fault.Format("parsing container bytes", err)
		}
		out = append(out, byte(b))
	}
	return out, nil
}
