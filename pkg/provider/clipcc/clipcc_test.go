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

package clipcc

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/sb3fetch/pkg/provider"
	"github.com/walteh/sb3fetch/pkg/testutils"
	"github.com/walteh/sb3fetch/pkg/transport"
)

func TestNewParsesDefaultKey(t *testing.T) {
	p, err := New(transport.New(transport.DefaultOptions()), Options{})
	require.NoError(t, err, "the embedded key should parse")
	assert.Equal(t, 1024, p.pub.N.BitLen())

	_, err = New(transport.New(transport.DefaultOptions()), Options{PublicKeyPEM: "garbage"})
	assert.Error(t, err)
}

func TestFetchMetadata(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	pubPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/project/42", r.URL.Path)
		w.Write([]byte(`<html><script id="__NEXT_DATA__">{"props":{"pageProps":{"project":{"name":"Clip Demo","userName":"zhang"}}}}</script></html>`))
	}))
	defer srv.Close()

	p, err := New(transport.New(transport.DefaultOptions()), Options{
		PageURL:      srv.URL + "/project/",
		DownloadURL:  "https://api.example/v1/project/download",
		PublicKeyPEM: pubPEM,
		Now:          func() time.Time { return time.UnixMilli(1700000000000) },
	})
	require.NoError(t, err)

	proj := &provider.Project{ID: "42"}
	require.NoError(t, p.FetchMetadata(testutils.Context(t), proj))
	assert.Equal(t, "Clip Demo", proj.Title)
	assert.Equal(t, []string{"zhang"}, proj.Authors)

	u, err := http.NewRequest(http.MethodGet, proj.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "/v1/project/download", u.URL.Path)

	enc, err := base64.StdEncoding.DecodeString(u.URL.Query().Get("keys"))
	require.NoError(t, err, "keys should be base64")
	plain, err := rsa.DecryptPKCS1v15(rand.Reader, priv, enc)
	require.NoError(t, err, "keys should decrypt with the private key")
	assert.Equal(t, "public|1700000000000|42", string(plain))
}

func TestDecode(t *testing.T) {
	p, err := New(transport.New(transport.DefaultOptions()), Options{})
	require.NoError(t, err)

	manifest := []byte(`{"targets":[],"meta":{"semver":"3.0.0"}}`)
	encrypted := testutils.EncryptCBC(t, manifest, key, iv)

	saved := CipherPrefix
	CipherPrefix = encrypted[:5]
	t.Cleanup(func() { CipherPrefix = saved })

	got, err := p.Decode(&provider.Project{}, encrypted)
	require.NoError(t, err)
	assert.Equal(t, manifest, got)

	container := testutils.Zip(t, testutils.File{Name: "project.json", Body: string(manifest)})
	got, err = p.Decode(&provider.Project{}, container)
	require.NoError(t, err)
	assert.Equal(t, container, got, "other payloads pass through")
}
