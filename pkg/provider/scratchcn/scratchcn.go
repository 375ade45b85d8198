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

// Package scratchcn fetches projects from scratch-cn.cn.
package scratchcn

import (
	"context"
	"net/url"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sb3fetch/pkg/decode"
	"github.com/walteh/sb3fetch/pkg/fault"
	"github.com/walteh/sb3fetch/pkg/provider"
	"github.com/walteh/sb3fetch/pkg/scrape"
	"github.com/walteh/sb3fetch/pkg/transport"
)

const (
	Name    = "scratchcn"
	Pattern = `(www\.)?scratch-cn\.cn/project/\?comid=(?P<id>[0-9a-z]+)`

	DefaultPageURL = "https://www.scratch-cn.cn/project/"
	DefaultFileURL = "https://www.xiaoyaqian.cn/userfile/scratch/"

	fileSelector  = "#_s_"
	titleSelector = ".work-title > h3"
)

var descriptor = provider.Descriptor{
	Name:        Name,
	DisplayName: "Scratch中社",
	Referer:     "https://www.scratch-cn.cn/",
	Assets:      provider.SameAssets("https://www.rgfpz.cn/scratch/00a6ad64232a90b4f6f5cc859b9d7f53/"),
}

// Options overrides the platform endpoints.
type Options struct {
	PageURL string
	FileURL string
}

// 🌐 Provider fetches scratch-cn.cn projects
type Provider struct {
	client *transport.Client
	opts   Options
}

func New(client *transport.Client, opts Options) *Provider {
	if opts.PageURL == "" {
		opts.PageURL = DefaultPageURL
	}
	if opts.FileURL == "" {
		opts.FileURL = DefaultFileURL
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
	page, err := p.client.Fetch(ctx, transport.Request{
		URL:     p.opts.PageURL,
		Query:   url.Values{"comid": {proj.ID}},
		Referer: descriptor.Referer,
	})
	if err != nil {
		return errors.Errorf("fetching project page: %w", err)
	}

	doc, err := scrape.Parse(page)
	if err != nil {
		return err
	}

	input, err := doc.Find(fileSelector)
	if err != nil {
		return err
	}
	file, ok := scrape.Attr(input, "value")
	if !ok || file == "" {
		return fault.Formatf("project page of %s has no project file", proj.ID)
	}

	heading, err := doc.Find(titleSelector)
	if err != nil {
		return err
	}

	proj.URL = p.opts.FileURL + file
	proj.Title = scrape.Text(heading)
	return nil
}

// Decode is the identity; files are served as plain containers.
func (p *Provider) Decode(proj *provider.Project, payload []byte) ([]byte, error) {
	return decode.Passthrough(payload)
}
