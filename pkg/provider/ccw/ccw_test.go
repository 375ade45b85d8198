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

package ccw

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/sb3fetch/pkg/fault"
	"github.com/walteh/sb3fetch/pkg/provider"
	"github.com/walteh/sb3fetch/pkg/testutils"
	"github.com/walteh/sb3fetch/pkg/transport"
)

const (
	manifest   = `{"targets":[{"costumes":[{"md5ext":"a.svg"}],"sounds":[]}]}`
	assetID    = "0123456789abcdef0123456789abcdef"
	projectURL = "https://m.ccw.site/user_projects_assets/" + assetID + ".sb3"
)

// obfuscate is the inverse of decode.Transform.
func obfuscate(plain string) string {
	s := base64.StdEncoding.EncodeToString([]byte(url.PathEscape(plain)))
	cut := (len(s) - 1) % 10
	return s[:cut] + s[cut+1:] + s[cut:cut+1]
}

func v3Payload(t *testing.T, container []byte) []byte {
	t.Helper()
	parts := make([]string, len(container))
	for i, b := range container {
		parts[i] = strconv.Itoa(int(b))
	}
	key, err := base64.RawStdEncoding.DecodeString(KeyPrefix + assetID)
	require.NoError(t, err)
	require.Len(t, key, 32, "a 32 character asset id derives an AES-256 key")

	enc := testutils.EncryptCBC(t, []byte(strings.Join(parts, ",")), key, key[:16])
	return []byte(base64.StdEncoding.EncodeToString(enc))
}

func TestDecodeContainer(t *testing.T) {
	plainZip := testutils.Zip(t, testutils.File{Name: "project.json", Body: manifest})
	obfuscatedZip := testutils.Zip(t, testutils.File{Name: "project.json", Body: obfuscate(manifest)})

	v2 := append(append([]byte{}, V2Signature...), plainZip[8:]...)

	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "plain_zip", payload: plainZip},
		{name: "v2_signature", payload: v2},
		{name: "v3_encrypted", payload: v3Payload(t, plainZip)},
		{name: "obfuscated_manifest", payload: obfuscatedZip},
		{name: "v3_with_obfuscated_manifest", payload: v3Payload(t, obfuscatedZip)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeContainer(projectURL, tt.payload, KeyPrefix)
			require.NoError(t, err, "decoding should succeed")
			assert.JSONEq(t, manifest, string(got))
		})
	}
}

func TestDecodeContainerErrors(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		payload []byte
	}{
		{name: "v3_not_base64", url: projectURL, payload: []byte("not base64 at all!")},
		{name: "v3_wrong_asset_id", url: "https://m.ccw.site/user_projects_assets/ffffffffffffffffffffffffffffffff.sb3", payload: v3Payload(t, testutils.Zip(t, testutils.File{Name: "project.json", Body: manifest}))},
		{name: "v3_no_file_name", url: "https://m.ccw.site/", payload: []byte("AAAA")},
		{name: "zip_without_manifest", url: projectURL, payload: testutils.Zip(t, testutils.File{Name: "other.json", Body: "{}"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeContainer(tt.url, tt.payload, KeyPrefix)
			assert.ErrorIs(t, err, fault.ErrFormat)
		})
	}
}

func TestAssetID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{url: projectURL, want: assetID},
		{url: projectURL + "?t=1700000000000", want: assetID},
		{url: "https://cdn.example/a/b/c.tar.gz", want: "c"},
	}
	for _, tt := range tests {
		got, err := AssetID(tt.url)
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.want, got, tt.url)
	}
}

func TestFetchMetadata(t *testing.T) {
	var body map[string]string
	var referer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		referer = r.Header.Get("Referer")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Write([]byte(`{"body":{"title":"Space Race","creationRelease":{"projectLink":"` + projectURL + `"}}}`))
	}))
	defer srv.Close()

	p := New(transport.New(transport.DefaultOptions()), Options{DetailURL: srv.URL})
	proj := &provider.Project{ID: "65a1b2c3d4e5f60718293a4b"}

	require.NoError(t, p.FetchMetadata(testutils.Context(t), proj))
	assert.Equal(t, "Space Race", proj.Title)
	assert.Equal(t, projectURL, proj.URL)
	assert.False(t, proj.HasPayload(), "the payload is fetched separately")
	assert.Equal(t, "65a1b2c3d4e5f60718293a4b", body["oid"])
	assert.Equal(t, "https://www.ccw.site/", referer)
}

func TestFetchMetadataMissingLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"body":{"title":"Private"}}`))
	}))
	defer srv.Close()

	p := New(transport.New(transport.DefaultOptions()), Options{DetailURL: srv.URL})
	err := p.FetchMetadata(testutils.Context(t), &provider.Project{ID: "x"})
	assert.ErrorIs(t, err, fault.ErrFormat)
}
