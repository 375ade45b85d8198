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
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const invalidPathChars = `\/:*?"<>|`

// 🧼 SanitizeTitle turns a project title into a file name stem. Path separators,
// reserved characters and control characters are removed and the result is NFC
// normalized. An empty result falls back to the sanitized id.
func SanitizeTitle(title, id string) string {
	if s := sanitize(title); s != "" {
		return s
	}
	if s := sanitize(id); s != "" {
		return s
	}
	return "project"
}

func sanitize(s string) string {
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(invalidPathChars, r) {
			return -1
		}
		return r
	}, s)
	return strings.Trim(s, " .")
}

// 📁 names hands out output paths that no other job of the same run uses.
// Files left by earlier runs are overwritten.
type names struct {
	dir  string
	mu   sync.Mutex
	used map[string]bool
}

func newNames(dir string) *names {
	return &names{dir: dir, used: map[string]bool{}}
}

func (n *names) reserve(stem, ext string) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	candidate := stem + ext
	for i := 2; n.used[strings.ToLower(candidate)]; i++ {
		candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
	}
	n.used[strings.ToLower(candidate)] = true
	return filepath.Join(n.dir, candidate)
}
