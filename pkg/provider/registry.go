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
	"regexp"
	"sync"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/sb3fetch/pkg/fault"
)

// IDGroup is the capture group every locator pattern must declare.
const IDGroup = "id"

type entry struct {
	pattern *regexp.Regexp
	factory Factory

	once     sync.Once
	provider Provider
	err      error
}

func (e *entry) get(ctx context.Context) (Provider, error) {
	e.once.Do(func() {
		e.provider, e.err = e.factory(ctx)
		if e.err == nil && e.provider == nil {
			e.err = errors.Errorf("factory for %s returned no provider", e.pattern)
		}
	})
	return e.provider, e.err
}

// 🗺️ Registry maps locators to providers. The first registered pattern that
// matches wins, and each provider is built at most once, on first use.
type Registry struct {
	mu      sync.RWMutex
	entries []*entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// 📝 Register appends a pattern. It must compile and declare an `id` group.
func (r *Registry) Register(pattern string, factory Factory) error {
	if factory == nil {
		return errors.Errorf("registering %q: nil factory", pattern)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return errors.Errorf("compiling pattern %q: %w", pattern, err)
	}
	if re.SubexpIndex(IDGroup) < 0 {
		return errors.Errorf("pattern %q has no %q group", pattern, IDGroup)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, &entry{pattern: re, factory: factory})
	return nil
}

// MustRegister is Register for static tables; it panics on error.
func (r *Registry) MustRegister(pattern string, factory Factory) {
	if err := r.Register(pattern, factory); err != nil {
		panic(err)
	}
}

// 🎯 Selection is a matched locator
type Selection struct {
	ID       string
	Provider Provider
}

func (r *Registry) match(locator string) (*entry, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		m := e.pattern.FindStringSubmatch(locator)
		if m == nil {
			continue
		}
		return e, m[e.pattern.SubexpIndex(IDGroup)]
	}
	return nil, ""
}

// 🔍 Select returns the provider of the first matching pattern, building it if needed.
// No match is a fault.ErrResolution.
func (r *Registry) Select(ctx context.Context, locator string) (Selection, error) {
	e, id := r.match(locator)
	if e == nil {
		return Selection{}, fault.Resolution("resolving "+locator, errors.New("no provider matches"))
	}
	p, err := e.get(ctx)
	if err != nil {
		return Selection{}, errors.Errorf("creating provider for %s: %w", locator, err)
	}
	return Selection{ID: id, Provider: p}, nil
}

// ✅ IsValid reports whether any pattern matches locator. Nothing is built.
func (r *Registry) IsValid(locator string) bool {
	e, _ := r.match(locator)
	return e != nil
}

// Patterns lists the registered patterns in selection order.
func (r *Registry) Patterns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.pattern.String()
	}
	return out
}
