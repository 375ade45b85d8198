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

// Package cocrea fetches projects from cocrea.world.
package cocrea

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sb3fetch/pkg/fault"
	"github.com/walteh/sb3fetch/pkg/provider"
	"github.com/walteh/sb3fetch/pkg/provider/ccw"
	"github.com/walteh/sb3fetch/pkg/scrape"
	"github.com/walteh/sb3fetch/pkg/transport"
)

const (
	Name    = "cocrea"
	Pattern = `(www\.)?cocrea\.world/(?P<id>[a-z0-9]{24})`

	DefaultPageURL = "https://www.cocrea.world/"
)

var descriptor = provider.Descriptor{
	Name:        Name,
	DisplayName: "Cocrea World",
	Referer:     "https://www.cocrea.world/",
	Assets:      provider.SameAssets("https://assets.cocrea.world/user_projects_assets/"),
}

// Options overrides the platform endpoints.
type Options struct {
	PageURL string           // Prefix of the project page, the id is appended
	Now     func() time.Time // Clock for the cache buster
}

// 🌐 Provider fetches cocrea.world projects
type Provider struct {
	client *transport.Client
	opts   Options
}

func New(client *transport.Client, opts Options) *Provider {
	if opts.PageURL == "" {
		opts.PageURL = DefaultPageURL
	}
	if opts.Now == nil {
		opts.Now = time.Now
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
	page, err := p.client.Fetch(ctx, transport.Request{URL: p.opts.PageURL + proj.ID, Referer: descriptor.Referer})
	if err != nil {
		return errors.Errorf("fetching project page: %w", err)
	}

	data, err := scrape.NextData(page)
	if err != nil {
		return err
	}

	creation := data.Get("props.pageProps.creationData")
	link := creation.Get("creationReleaseResp.projectLink").String()
	if link == "" {
		return fault.Formatf("project page of %s has no project link", proj.ID)
	}

	u, err := url.Parse(link)
	if err != nil {
		return fault.Format("parsing project link", err)
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(p.opts.Now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	proj.URL = u.String()
	proj.Title = creation.Get("title").String()
	if author := creation.Get("author.username").String(); author != "" {
		proj.Authors = []string{author}
	}
	return nil
}

func (p *Provider) Decode(proj *provider.Project, payload []byte) ([]byte, error) {
	return ccw.DecodeContainer(proj.URL, payload, ccw.KeyPrefix)
}
