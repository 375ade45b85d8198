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

package operation

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sb3fetch/pkg/fault"
	"github.com/walteh/sb3fetch/pkg/status"
	"github.com/walteh/sb3fetch/pkg/transport"
)

// stubFetcher serves fixed bodies by URL; unknown URLs are a 404.
type stubFetcher struct {
	mu       sync.Mutex
	bodies   map[string]string
	calls    map[string]int
	referers map[string]string

	// hook runs before the response is chosen
	hook func(ctx context.Context, r transport.Request)
}

func newStubFetcher(bodies map[string]string) *stubFetcher {
	return &stubFetcher{
		bodies:   bodies,
		calls:    map[string]int{},
		referers: map[string]string{},
	}
}

func (s *stubFetcher) Fetch(ctx context.Context, r transport.Request) ([]byte, error) {
	s.mu.Lock()
	s.calls[r.URL]++
	s.referers[r.URL] = r.Referer
	body, ok := s.bodies[r.URL]
	hook := s.hook
	s.mu.Unlock()

	if hook != nil {
		hook(ctx, r)
	}
	if err := ctx.Err(); err != nil {
		return nil, fault.Transport("fetching "+r.URL, err)
	}
	if !ok {
		return nil, fault.Transport("fetching "+r.URL, errors.Errorf("%w: 404", transport.ErrNotFound))
	}
	return []byte(body), nil
}

func (s *stubFetcher) count(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

func (s *stubFetcher) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// recorder keeps every event it handles.
type recorder struct {
	mu     sync.Mutex
	events []status.Event
}

func (r *recorder) Handle(e status.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) job(i int) []status.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []status.Event
	for _, e := range r.events {
		if e.Job == i {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) notify(job int) Notify {
	return func(t status.EventType, detail string) {
		r.Handle(status.Event{Job: job, Type: t, Detail: detail})
	}
}

func stages(events []status.Event) []status.Stage {
	var out []status.Stage
	for _, e := range events {
		if e.Type == status.EventTransition {
			out = append(out, e.Stage)
		}
	}
	return out
}

func ofType(events []status.Event, t status.EventType) []status.Event {
	var out []status.Event
	for _, e := range events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// readZip returns entry names in archive order and their contents.
func readZip(t testing.TB, data []byte) ([]string, map[string]string) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err, "opening archive")

	var names []string
	bodies := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err, "opening %s", f.Name)
		body, err := io.ReadAll(rc)
		require.NoError(t, err, "reading %s", f.Name)
		require.NoError(t, rc.Close())
		names = append(names, f.Name)
		bodies[f.Name] = string(body)
	}
	return names, bodies
}
