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

// Package xmw fetches projects from world.xiaomawang.com.
package xmw

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sb3fetch/pkg/decode"
	"github.com/walteh/sb3fetch/pkg/fault"
	"github.com/walteh/sb3fetch/pkg/provider"
	"github.com/walteh/sb3fetch/pkg/scrape"
	"github.com/walteh/sb3fetch/pkg/transport"
)

const (
	Name    = "xmw"
	Pattern = `world\.xiaomawang\.com/community/main/compose/(?P<id>[a-zA-Z0-9]{8})`

	DefaultPageURL = "https://world.xiaomawang.com/community/main/compose/"
	DefaultSB3URL  = "https://community-api.xiaomawang.com/japi/v1/composition/get-encrypt-sb3"

	signPrefix = "xiaomw135"
)

var (
	key = []byte("xmwcommunityskey")
	iv  = []byte("0392139263920300")
)

var descriptor = provider.Descriptor{
	Name:        Name,
	DisplayName: "小码王",
	Referer:     "https://world.xiaomawang.com/",
	Assets: provider.SplitAssets(
		"https://community-wscdn.xiaomawang.com/picture/",
		"https://community-wscdn.xiaomawang.com/audio/",
	),
}

// Options overrides the platform endpoints.
type Options struct {
	PageURL string
	SB3URL  string
	Now     func() time.Time
}

// 🌐 Provider fetches xiaomawang projects. The payload is resolved during
// metadata fetching, so the job never requests Project.URL itself.
type Provider struct {
	client *transport.Client
	opts   Options
}

func New(client *transport.Client, opts Options) *Provider {
	if opts.PageURL == "" {
		opts.PageURL = DefaultPageURL
	}
	if opts.SB3URL == "" {
		opts.SB3URL = DefaultSB3URL
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
	page, err := p.client.Fetch(ctx, transport.Request{URL: p.opts.PageURL + url.PathEscape(proj.ID), Referer: descriptor.Referer})
	if err != nil {
		return errors.Errorf("fetching project page: %w", err)
	}
	data, err := scrape.NextData(page)
	if err != nil {
		return err
	}

	sb3Req := transport.Request{
		URL:     p.opts.SB3URL,
		Query:   url.Values{"compositionEncryptId": {proj.ID}},
		Referer: descriptor.Referer,
	}
	doc, err := p.client.JSON(ctx, sb3Req)
	if err != nil {
		return errors.Errorf("fetching encrypted project: %w", err)
	}
	body := doc.Get("data")
	if !body.Exists() {
		return fault.Formatf("encrypted project response of %s has no data", proj.ID)
	}

	proj.URL = sb3Req.URL + "?" + sb3Req.Query.Encode()
	proj.Title = data.Get("props.initialState.detail.composeInfo.title").String()

	payload := body.String()
	if !isHTTPURL(payload) {
		proj.Payload = []byte(payload)
		return nil
	}

	ts := strconv.FormatInt(p.opts.Now().Unix(), 10)
	sum := md5.Sum([]byte(signPrefix + ts))
	signed, err := p.client.Fetch(ctx, transport.Request{
		URL:     payload,
		Query:   url.Values{"key": {hex.EncodeToString(sum[:])}, "time": {ts}},
		Referer: descriptor.Referer,
	})
	if err != nil {
		return errors.Errorf("fetching signed project: %w", err)
	}
	proj.URL = payload
	proj.Payload = signed
	return nil
}

func isHTTPURL(s string) bool {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}

func (p *Provider) Decode(proj *provider.Project, payload []byte) ([]byte, error) {
	if decode.LooksLikeJSON(payload) {
		return decode.Passthrough(payload)
	}
	return decode.HexCBC(payload, key, iv)
}
