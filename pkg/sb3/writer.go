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

package sb3

import (
	"archive/zip"
	"context"
	"io"
	"sync"
	"time"

	"gitlab.com/tozd/go/errors"
)

var (
	ErrSealed          = errors.Base("archive already sealed")
	ErrManifestMissing = errors.Base("manifest must be written before assets")
)

// ✍️ Writer is a zip archive that accepts each entry name at most once.
// The manifest is always the first entry. Safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	zw     *zip.Writer
	names  map[string]bool
	order  []string
	sealed bool
	now    func() time.Time
}

// NewWriter starts an archive on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		zw:    zip.NewWriter(w),
		names: make(map[string]bool),
		now:   time.Now,
	}
}

// WriteManifest stores project.json. Repeated calls are no-ops.
func (w *Writer) WriteManifest(manifest []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.names[ManifestName] {
		return nil
	}
	if len(w.order) > 0 {
		return errors.Errorf("writing %s after %d entries", ManifestName, len(w.order))
	}
	return w.put(ManifestName, manifest)
}

// 📥 Add stores an asset entry. It reports false when the name was already present.
// Once ctx is done nothing more is written and ctx's error is returned.
func (w *Writer) Add(ctx context.Context, name string, data []byte) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, errors.WithStack(err)
	}
	if !w.names[ManifestName] {
		return false, errors.WithStack(ErrManifestMissing)
	}
	if w.names[name] {
		return false, nil
	}
	if err := w.put(name, data); err != nil {
		return false, err
	}
	return true, nil
}

func (w *Writer) put(name string, data []byte) error {
	if w.sealed {
		return errors.WithStack(ErrSealed)
	}

	f, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: w.now(),
	})
	if err != nil {
		return errors.Errorf("creating entry %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return errors.Errorf("writing entry %s: %w", name, err)
	}

	w.names[name] = true
	w.order = append(w.order, name)
	return nil
}

// Entries returns entry names in write order.
func (w *Writer) Entries() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, len(w.order))
	copy(out, w.order)
	return out
}

// 🔒 Close seals the archive and flushes the central directory. Only the first call does work.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sealed {
		return nil
	}
	w.sealed = true

	if err := w.zw.Close(); err != nil {
		return errors.Errorf("sealing archive: %w", err)
	}
	return nil
}
