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

// Package scratch fetches projects from scratch.mit.edu through public mirrors.
package scratch

import (
	"context"
	"net/url"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sb3fetch/pkg/decode"
	"github.com/walteh/sb3fetch/pkg/fault"
	"github.com/walteh/sb3fetch/pkg/provider"
	"github.com/walteh/sb3fetch/pkg/transport"
)

const (
	Name    = "scratch"
	Pattern = `scratch\.mit\.edu/projects/(?P<id>[0-9]+)/?`

	DefaultAPIURL     = "https://trampoline.turbowarp.org/api/projects/"
	DefaultProjectURL = "https://chilipar.alibga.icu/projects/"
)

var descriptor = provider.Descriptor{
	Name:        Name,
	DisplayName: "Scratch",
	Referer:     "https://scratch.mit.edu/",
	Assets:      provider.SameAssets("https://chilipar.alibga.icu/assets/"),
}

// Options overrides the mirror endpoints.
type Options struct {
	APIURL     string
	ProjectURL string
}

// 🌐 Provider fetches scratch.mit.edu projects
type Provider struct {
	client *transport.Client
	opts   Options
}

func New(client *transport.Client, opts Options) *Provider {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.ProjectURL == "" {
		opts.ProjectURL = DefaultProjectURL
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
	doc, err := p.client.JSON(ctx, transport.Request{URL: p.opts.APIURL + url.PathEscape(proj.ID), Referer: descriptor.Referer})
	if err != nil {
		return errors.Errorf("fetching project info: %w", err)
	}

	token := doc.Get("project_token").String()
	if token == "" {
		return fault.Formatf("project %s has no token, it may be unshared", proj.ID)
	}

	proj.URL = p.opts.ProjectURL + url.PathEscape(proj.ID) + "?" + url.Values{"token": {token}}.Encode()
	proj.Title = doc.Get("title").String()
	if author := doc.Get("author.username").String(); author != "" {
		proj.Authors = []string{author}
	}
	return nil
}

// Decode is the identity; the mirror serves plain projects.
func (p *Provider) Decode(proj *provider.Project, payload []byte) ([]byte, error) {
	return decode.Passthrough(payload)
}
