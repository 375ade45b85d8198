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

package decode

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"unicode/utf8"

	"github.com/walteh/sb3fetch/pkg/fault"
	"gitlab.com/tozd/go/errors"
)

var (
	// 🔐 ErrUnsupportedKeySize is returned for keys that are neither 16 nor 32 bytes
	ErrUnsupportedKeySize = fault.Formatf("unsupported key size")

	// 📦 ZipSignature is the canonical local file header every container starts with
	ZipSignature = []byte{0x50, 0x4b, 0x03, 0x04, 0x0a, 0x00, 0x00, 0x00}
)

// 🔁 Passthrough returns the payload unchanged
func Passthrough(payload []byte) ([]byte, error) {
	return payload, nil
}

// 🔓 CBC decrypts an AES-CBC payload and strips its PKCS#7 padding.
// The key length selects the cipher: 16 bytes for AES-128, 32 bytes for AES-256.
func CBC(payload, key, iv []byte) ([]byte, error) {
	switch len(key) {
	case 16, 32:
	default:
		return nil, fault.Format("decrypting payload", errors.Errorf("%w: %d bytes", ErrUnsupportedKeySize, len(key)))
	}
	if len(iv) != aes.BlockSize {
		return nil, fault.Formatf("decrypting payload: iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}
	if len(payload) == 0 || len(payload)%aes.BlockSize != 0 {
		return nil, fault.Formatf("decrypting payload: length %d is not a multiple of the block size", len(payload))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fault.Format("creating cipher", err)
	}

	out := make([]byte, len(payload))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, payload)

	return unpad(out, aes.BlockSize)
}

func unpad(buf []byte, blockSize int) ([]byte, error) {
	n := len(buf)
	if n == 0 {
		return nil, fault.Formatf("removing padding: empty plaintext")
	}
	pad := int(buf[n-1])
	if pad == 0 || pad > blockSize || pad > n {
		return nil, fault.Formatf("removing padding: invalid padding length %d", pad)
	}
	for _, b := range buf[n-pad:] {
		if int(b) != pad {
			return nil, fault.Formatf("removing padding: inconsistent padding bytes")
		}
	}
	return buf[:n-pad], nil
}

// 🔢 Hex decodes ASCII hex text, ignoring any embedded whitespace
func Hex(text []byte) ([]byte, error) {
	clean := stripSpace(text)
	out := make([]byte, hex.DecodedLen(len(clean)))
	if _, err := hex.Decode(out, clean); err != nil {
		return nil, fault.Format("decoding hex", err)
	}
	return out, nil
}

// HexCBC hex-decodes the payload and then decrypts it with CBC.
func HexCBC(payload, key, iv []byte) ([]byte, error) {
	raw, err := Hex(payload)
	if err != nil {
		return nil, err
	}
	return CBC(raw, key, iv)
}

func stripSpace(text []byte) []byte {
	out := make([]byte, 0, len(text))
	for _, b := range text {
		switch b {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			continue
		}
		out = append(out, b)
	}
	return out
}

// Base64 decodes standard, padded base64.
func Base64(text []byte) ([]byte, error) {
	out := make([]byte, base64.StdEncoding.DecodedLen(len(text)))
	n, err := base64.StdEncoding.Decode(out, text)
	if err != nil {
		return nil, fault.Format("decoding base64", err)
	}
	return out[:n], nil
}

// Base64Raw decodes unpadded standard base64. Non-zero trailing bits are tolerated.
func Base64Raw(text []byte) ([]byte, error) {
	out := make([]byte, base64.RawStdEncoding.DecodedLen(len(text)))
	n, err := base64.RawStdEncoding.Decode(out, text)
	if err != nil {
		return nil, fault.Format("decoding unpadded base64", err)
	}
	return out[:n], nil
}

// 🔀 Transform reverses the character rotation applied to a base64 body, then
// base64- and percent-decodes it.
//
// For an input of length L the character at L-1 belongs at cut = (L-1) % 10.
func Transform(text []byte) ([]byte, error) {
	l := len(text)
	if l == 0 {
		return nil, fault.Formatf("transforming payload: empty input")
	}

	cut := (l - 1) % 10
	rotated := make([]byte, 0, l)
	rotated = append(rotated, text[:cut]...)
	rotated = append(rotated, text[l-1])
	rotated = append(rotated, text[cut:l-1]...)

	decoded, err := Base64(rotated)
	if err != nil {
		return nil, err
	}

	plain, err := url.PathUnescape(string(decoded))
	if err != nil {
		return nil, fault.Format("percent-decoding payload", err)
	}
	if !utf8.ValidString(plain) {
		return nil, fault.Formatf("percent-decoding payload: result is not valid UTF-8")
	}

	return []byte(plain), nil
}

// IsZip reports whether the payload starts with the canonical container signature.
func IsZip(payload []byte) bool {
	return bytes.HasPrefix(payload, ZipSignature)
}

// 🩹 PatchSignature swaps a non-standard leading signature for ZipSignature.
// Payloads that do not start with from are rejected.
func PatchSignature(payload, from []byte) ([]byte, error) {
	if len(from) != len(ZipSignature) {
		return nil, fault.Formatf("patching signature: expected %d byte signature, got %d", len(ZipSignature), len(from))
	}
	if !bytes.HasPrefix(payload, from) {
		return nil, fault.Formatf("patching signature: unexpected leading bytes")
	}

	out := make([]byte, len(payload))
	copy(out, ZipSignature)
	copy(out[len(ZipSignature):], payload[len(from):])
	return out, nil
}

// LooksLikeJSON reports whether the first non-space byte opens a JSON object.
func LooksLikeJSON(payload []byte) bool {
	trimmed := bytes.TrimLeft(payload, " \t\r\n\ufeff")
	return len(trimmed) > 0 && trimmed[0] == '{'
}
