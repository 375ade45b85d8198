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

// Package gitblock fetches projects from gitblock.cn.
package gitblock

import (
	"context"
	"net/http"
	"net/url"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sb3fetch/pkg/decode"
	"github.com/walteh/sb3fetch/pkg/fault"
	"github.com/walteh/sb3fetch/pkg/provider"
	"github.com/walteh/sb3fetch/pkg/transport"
)

const (
	Name    = "gitblock"
	Pattern = `(www\.)?gitblock\.cn/Projects/(?P<id>[0-9]+)`

	DefaultProjectURL  = "https://gitblock.cn/WebApi/Projects/"
	DefaultDownloadURL = "https://asset.gitblock.cn/Project/download/"
)

var (
	key = []byte("4A9745825F24883B657AFC4E4626A0F2")
	iv  = []byte("4A9745825F24883B")
)

var descriptor = provider.Descriptor{
	Name:        Name,
	DisplayName: "稽木世界",
	Referer:     "https://gitblock.cn",
	Assets:      provider.SameAssets("https://cdn.gitblock.cn/Project/GetAsset?name="),
}

// Options overrides the platform endpoints.
type Options struct {
	ProjectURL  string // Prefix of `<id>/Get`
	DownloadURL string
}

// 🌐 Provider fetches gitblock.cn projects
type Provider struct {
	client *transport.Client
	opts   Options
}

func New(client *transport.Client, opts Options) *Provider {
	if opts.ProjectURL == "" {
		opts.ProjectURL = DefaultProjectURL
	}
	if opts.DownloadURL == "" {
		opts.DownloadURL = DefaultDownloadURL
	}
	return &Provider{client: client, opts: opts}
}

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
		URL:     p.opts.ProjectURL + url.PathEscape(proj.ID) + "/Get",
		Referer: descriptor.Referer,
	})
	if err != nil {
		return errors.Errorf("fetching project: %w", err)
	}

	// Large projects are throttled for anonymous visitors.
	if doc.Get("accessLimitLevel").Int() > 1 {
		return fault.Formatf("project %s is access limited: %s", proj.ID, doc.Get("accessLimitTips").String())
	}

	project := doc.Get("project")
	if !project.IsObject() {
		return fault.Formatf("project %s not found", proj.ID)
	}

	proj.URL = p.opts.DownloadURL + "?" + url.Values{
		"id": {proj.ID},
		"v":  {project.Get("version").String()},
	}.Encode()
	proj.Title = project.Get("title").String()
	if creator := project.Get("creator.username").String(); creator != "" {
		proj.Authors = []string{creator}
	}
	return nil
}

func (p *Provider) Decode(proj *provider.Project, payload []byte) ([]byte, error) {
	return decode.CBC(payload, key, iv)
}
