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

// Package fortycode fetches projects from 40code.com.
package fortycode

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
	Name    = "40code"
	Pattern = `(www\.)?40code\.com/#page=work&id=(?P<id>[0-9]+)`

	DefaultAPIURL = "https://service-dq726wx5-1302921490.sh.apigw.tencentcs.com/work/"
)

var (
	key = []byte("9609274736591562")
	iv  = []byte("4312549111852919")
)

var descriptor = provider.Descriptor{
	Name:        Name,
	DisplayName: "40code",
	Referer:     "https://www.40code.com/",
	Assets:      provider.SameAssets("https://40code-cdn.zq990.com/static/internalapi/asset/"),
}

// Options overrides the platform endpoints.
type Options struct {
	APIURL string // Prefix of the info and work endpoints
}

// 🌐 Provider fetches 40code.com projects
type Provider struct {
	client *transport.Client
	opts   Options
}

func New(client *transport.Client, opts Options) *Provider {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
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

func workQuery(id string) url.Values {
	return url.Values{"id": {id}, "sha": {""}, "etime": {""}, "token": {""}}
}

func (p *Provider) FetchMetadata(ctx context.Context, proj *provider.Project) error {
	doc, err := p.client.JSON(ctx, transport.Request{
		URL:     p.opts.APIURL + "info",
		Query:   workQuery(proj.ID),
		Referer: descriptor.Referer,
	})
	if err != nil {
		return errors.Errorf("fetching work info: %w", err)
	}

	data := doc.Get("data")
	if !data.IsObject() {
		return fault.Formatf("work info of %s has no data", proj.ID)
	}

	proj.URL = p.opts.APIURL + "work?" + workQuery(proj.ID).Encode()
	proj.Title = data.Get("name").String()
	if nick := data.Get("nickname").String(); nick != "" {
		proj.Authors = []string{nick}
	}
	return nil
}

func (p *Provider) Decode(proj *provider.Project, payload []byte) ([]byte, error) {
	if decode.LooksLikeJSON(payload) {
		return decode.Passthrough(payload)
	}
	return decode.HexCBC(payload, key, iv)
}
