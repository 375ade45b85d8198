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

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/time/rate"

	"github.com/walteh/sb3fetch/pkg/fault"
)

// DefaultUserAgent is sent when Options.UserAgent is empty.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"

var (
	ErrNotFound     = errors.Base("resource not found")
	ErrForbidden    = errors.Base("access forbidden")
	ErrUnauthorized = errors.Base("unauthorized")
	ErrStatus       = errors.Base("unexpected status code")
)

// 🔧 Options configures the shared client
type Options struct {
	UserAgent         string        // Sent with every request
	Timeout           time.Duration // Per request, 0 disables
	RequestsPerSecond float64       // Pacing across all jobs, 0 disables
	HTTPClient        *http.Client  // Optional, mostly for tests
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		UserAgent: DefaultUserAgent,
		Timeout:   60 * time.Second,
	}
}

// 🌐 Client performs the requests of every job. It never retries.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	agent   string
}

// 🏭 New creates a client; it is safe for concurrent use
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	agent := opts.UserAgent
	if agent == "" {
		agent = DefaultUserAgent
	}

	c := &Client{http: hc, agent: agent}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c
}

// 📨 Request describes one exchange
type Request struct {
	Method  string      // Defaults to GET
	URL     string      // Absolute URL, may already carry a query
	Query   url.Values  // Merged into the URL's query
	Referer string      // Optional Referer header
	Header  http.Header // Extra headers
	Body    []byte      // Raw body
	JSON    any         // Marshalled as the body when set
}

// Get is a GET request for rawURL.
func Get(rawURL string) Request {
	return Request{Method: http.MethodGet, URL: rawURL}
}

func (r Request) build(ctx context.Context, agent string) (*http.Request, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, errors.Errorf("parsing url: %w", err)
	}
	if len(r.Query) > 0 {
		q := u.Query()
		for k, vs := range r.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	body := r.Body
	contentType := ""
	if r.JSON != nil {
		body, err = json.Marshal(r.JSON)
		if err != nil {
			return nil, errors.Errorf("encoding request body: %w", err)
		}
		contentType = "application/json"
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, errors.Errorf("creating request: %w", err)
	}
	req.ContentLength = int64(len(body))

	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", agent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if r.Referer != "" {
		req.Header.Set("Referer", r.Referer)
	}
	return req, nil
}

// 📥 Fetch performs the request and returns the whole response body.
// Every failure is a fault.ErrTransport; cancellation keeps context.Canceled in the chain.
func (c *Client) Fetch(ctx context.Context, r Request) ([]byte, error) {
	op := "fetching " + r.URL

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			return nil, fault.Transport(op, err)
		}
	}

	req, err := r.build(ctx, c.agent)
	if err != nil {
		return nil, fault.Transport(op, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, fault.Transport(op, err)
	}
	defer resp.Body.Close()

	zerolog.Ctx(ctx).Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("http exchange")

	if err := checkStatusCode(resp.StatusCode); err != nil {
		return nil, fault.Transport(op, err)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, fault.Transport(op, errors.Errorf("reading body: %w", err))
	}
	return data, nil
}

// 🧭 JSON fetches a JSON document for gjson path lookups. A body that is not
// valid JSON is a fault.ErrFormat.
func (c *Client) JSON(ctx context.Context, r Request) (gjson.Result, error) {
	data, err := c.Fetch(ctx, r)
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fault.Formatf("response from %s is not valid json", r.URL)
	}
	return gjson.ParseBytes(data), nil
}

func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return errors.WithStack(ErrNotFound)
	case code == http.StatusForbidden:
		return errors.WithStack(ErrForbidden)
	case code == http.StatusUnauthorized:
		return errors.WithStack(ErrUnauthorized)
	default:
		return errors.Errorf("%w: %d", ErrStatus, code)
	}
}
