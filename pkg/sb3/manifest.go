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
	"bytes"
	"encoding/json"
	"io"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/walteh/sb3fetch/pkg/fault"
)

// ManifestName is the archive entry holding the project manifest.
const ManifestName = "project.json"

// 🎭 Kind tells which asset list a reference came from
type Kind int

const (
	Costume Kind = iota
	Sound
)

func (k Kind) String() string {
	if k == Sound {
		return "sound"
	}
	return "costume"
}

// 🖼️ Asset is a costume or sound referenced by the manifest
type Asset struct {
	Kind     Kind
	Filename string // content-hash qualified, e.g. 83a9787d4cb6f3b7632b4ddfebf74367.wav
}

// builtinExtensions ship with the standard runtime.
var builtinExtensions = map[string]bool{
	"pen":          true,
	"wedo2":        true,
	"music":        true,
	"microbit":     true,
	"text2speech":  true,
	"translate":    true,
	"videoSensing": true,
	"ev3":          true,
	"makeymakey":   true,
	"boost":        true,
	"gdxfor":       true,
}

type assetRef struct {
	MD5Ext     string `json:"md5ext"`
	AssetID    string `json:"assetId"`
	DataFormat string `json:"dataFormat"`
}

type target struct {
	Name     string     `json:"name"`
	Costumes []assetRef `json:"costumes"`
	Sounds   []assetRef `json:"sounds"`
}

// 📜 Manifest is the parsed form of project.json
type Manifest struct {
	Targets       []target          `json:"targets"`
	Extensions    []string          `json:"extensions"`
	ExtensionURLs map[string]string `json:"extensionURLs"`
}

// ParseManifest decodes a plaintext manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fault.Format("parsing manifest", err)
	}
	if m.Targets == nil {
		return nil, fault.Formatf("parsing manifest: missing targets")
	}
	return &m, nil
}

func (r assetRef) filename() string {
	if r.MD5Ext != "" {
		return r.MD5Ext
	}
	if r.AssetID != "" && r.DataFormat != "" {
		return r.AssetID + "." + r.DataFormat
	}
	return ""
}

// Assets lists every asset reference in target order, costumes before sounds.
func (m *Manifest) Assets() ([]Asset, error) {
	var assets []Asset
	for i, t := range m.Targets {
		for _, group := range []struct {
			kind Kind
			refs []assetRef
		}{{Costume, t.Costumes}, {Sound, t.Sounds}} {
			for _, ref := range group.refs {
				name := ref.filename()
				if name == "" {
					return nil, fault.Formatf("parsing manifest: target %d (%s) has a %s without a filename", i, t.Name, group.kind)
				}
				assets = append(assets, Asset{Kind: group.kind, Filename: name})
			}
		}
	}
	return assets, nil
}

// 🧹 UniqueAssets is Assets without repeated filenames; the first reference wins.
func (m *Manifest) UniqueAssets() ([]Asset, error) {
	all, err := m.Assets()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(all))
	unique := make([]Asset, 0, len(all))
	for _, a := range all {
		if seen[a.Filename] {
			continue
		}
		seen[a.Filename] = true
		unique = append(unique, a)
	}
	return unique, nil
}

// 🧩 CommunityExtensions returns the extensions the standard runtime cannot load.
// allowed holds doublestar patterns of extension ids to keep quiet about.
func (m *Manifest) CommunityExtensions(allowed []string) []string {
	seen := map[string]bool{}
	var out []string

	add := func(id string) {
		if seen[id] || builtinExtensions[id] {
			return
		}
		for _, pattern := range allowed {
			if ok, err := doublestar.Match(pattern, id); err == nil && ok {
				return
			}
		}
		seen[id] = true
		out = append(out, id)
	}

	for _, id := range m.Extensions {
		add(id)
	}
	custom := make([]string, 0, len(m.ExtensionURLs))
	for id := range m.ExtensionURLs {
		custom = append(custom, id)
	}
	sort.Strings(custom)
	for _, id := range custom {
		add(id)
	}
	return out
}

// IsContainer reports whether data starts with a zip local file header.
func IsContainer(data []byte) bool {
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

// 📂 ReadManifest extracts project.json from a zip container
func ReadManifest(container []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(container), int64(len(container)))
	if err != nil {
		return nil, fault.Format("opening container", err)
	}

	f, err := zr.Open(ManifestName)
	if err != nil {
		return nil, fault.Format("opening "+ManifestName, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fault.Format("reading "+ManifestName, err)
	}
	return data, nil
}

// ManifestBytes returns the plaintext manifest whether data is a container or the manifest itself.
func ManifestBytes(data []byte) ([]byte, error) {
	if IsContainer(data) {
		return ReadManifest(data)
	}
	return data, nil
}
