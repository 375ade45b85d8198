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

// Package testutils holds fixtures shared by package tests: a mock provider,
// payload builders and a logging context.
package testutils

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/walteh/sb3fetch/pkg/provider"
)

// 📝 Context returns a context whose zerolog logger writes to the test log
func Context(t testing.TB) context.Context {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}

// 📦 Zip builds a project container holding files in the given order
func Zip(t testing.TB, files ...File) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		require.NoError(t, err, "creating zip entry")
		_, err = w.Write([]byte(f.Body))
		require.NoError(t, err, "writing zip entry")
	}
	require.NoError(t, zw.Close(), "closing zip")
	return buf.Bytes()
}

// File is one container entry.
type File struct {
	Name string
	Body string
}

// 🔐 EncryptCBC is the inverse of decode.CBC: PKCS#7 pad, then AES-CBC encrypt
func EncryptCBC(t testing.TB, plain, key, iv []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	require.NoError(t, err, "creating cipher")

	pad := aes.BlockSize - len(plain)%aes.BlockSize
	padded := append(append([]byte{}, plain...), bytes.Repeat([]byte{byte(pad)}, pad)...)

	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out
}

// 🔧 MockProvider is a mock implementation of the provider.Provider interface
type MockProvider struct {
	mock.Mock
}

var _ provider.Provider = (*MockProvider)(nil)

func (m *MockProvider) Describe() provider.Descriptor {
	result := m.Called()
	return result.Get(0).(provider.Descriptor)
}

func (m *MockProvider) FetchMetadata(ctx context.Context, p *provider.Project) error {
	result := m.Called(ctx, p)
	return result.Error(0)
}

func (m *MockProvider) Decode(p *provider.Project, payload []byte) ([]byte, error) {
	result := m.Called(p, payload)
	out, _ := result.Get(0).([]byte)
	return out, result.Error(1)
}
