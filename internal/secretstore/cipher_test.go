// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package secretstore

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey() [KeySize]byte {
	return DeriveKey(Identity{User: "alice", Host: "workstation"})
}

// =============================================================================
// KEY DERIVATION TESTS
// =============================================================================

func TestDeriveKey_Deterministic(t *testing.T) {
	id := Identity{User: "alice", Host: "workstation"}

	key1 := DeriveKey(id)
	key2 := DeriveKey(id)
	require.Equal(t, key1, key2, "Same identity should derive same key")
}

func TestDeriveKey_DistinctIdentities(t *testing.T) {
	base := DeriveKey(Identity{User: "alice", Host: "workstation"})

	require.NotEqual(t, base, DeriveKey(Identity{User: "bob", Host: "workstation"}), "Different user should derive different key")
	require.NotEqual(t, base, DeriveKey(Identity{User: "alice", Host: "laptop"}), "Different host should derive different key")
}

func TestDeriveKey_Layout(t *testing.T) {
	// The layout is fixed so existing files keep decrypting.
	want := sha256.Sum256([]byte("alice:workstation" + "mcp-switchboard-config-key"))
	require.Equal(t, want, DeriveKey(Identity{User: "alice", Host: "workstation"}))
}

func TestCurrentIdentity_Fallbacks(t *testing.T) {
	t.Setenv("USER", "")
	t.Setenv("USERNAME", "winuser")
	require.Equal(t, "winuser", CurrentIdentity().User)

	t.Setenv("USERNAME", "")
	require.Equal(t, "unknown", CurrentIdentity().User)

	t.Setenv("USER", "posixuser")
	require.Equal(t, "posixuser", CurrentIdentity().User)
}

// =============================================================================
// SEAL / UNSEAL TESTS
// =============================================================================

func TestSeal_RoundTrip(t *testing.T) {
	key := testKey()

	testCases := []struct {
		name      string
		plaintext []byte
	}{
		{"empty", []byte{}},
		{"record", []byte(`{"together_ai_api_key":"abc123","preferred_model":null}`)},
		{"unicode", []byte("ключ 🔑 鍵")},
		{"large", bytes.Repeat([]byte("x"), 64*1024)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			blob, err := Seal(&key, tc.plaintext)
			require.NoError(t, err)

			got, err := Unseal(&key, blob)
			require.NoError(t, err)
			require.True(t, bytes.Equal(tc.plaintext, got), "round trip mismatch")
		})
	}
}

func TestSeal_BlobLayout(t *testing.T) {
	key := testKey()
	plaintext := []byte("hello")

	blob, err := Seal(&key, plaintext)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(string(blob))
	require.NoError(t, err, "blob should be standard base64")
	// nonce + ciphertext + 16-byte tag
	require.Len(t, raw, NonceSize+len(plaintext)+16)
}

func TestSeal_NonceUniqueness(t *testing.T) {
	key := testKey()
	plaintext := []byte(`{"together_ai_api_key":"same"}`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		blob, err := Seal(&key, plaintext)
		require.NoError(t, err)

		raw, err := base64.StdEncoding.DecodeString(string(blob))
		require.NoError(t, err)
		nonce := string(raw[:NonceSize])

		require.False(t, seen[nonce], "nonce reused at iteration %d", i)
		seen[nonce] = true
	}
}

func TestSeal_SamePlaintextDifferentBlobs(t *testing.T) {
	key := testKey()

	a, err := Seal(&key, []byte("same"))
	require.NoError(t, err)
	b, err := Seal(&key, []byte("same"))
	require.NoError(t, err)

	require.NotEqual(t, string(a), string(b))
}

func TestUnseal_WrongKey(t *testing.T) {
	key := testKey()
	other := DeriveKey(Identity{User: "mallory", Host: "workstation"})

	blob, err := Seal(&key, []byte("secret"))
	require.NoError(t, err)

	_, err = Unseal(&other, blob)
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestUnseal_TamperDetection(t *testing.T) {
	key := testKey()

	blob, err := Seal(&key, []byte(`{"together_ai_api_key":"abc123"}`))
	require.NoError(t, err)

	for i := range blob {
		tampered := bytes.Clone(blob)
		tampered[i] ^= 0x01

		_, err := Unseal(&key, tampered)
		require.Error(t, err, "flipping byte %d should be detected", i)
	}
}

func TestUnseal_InvalidInput(t *testing.T) {
	key := testKey()

	testCases := []struct {
		name string
		blob []byte
	}{
		{"not base64", []byte("!!!not-base64!!!")},
		{"shorter than nonce", []byte(base64.StdEncoding.EncodeToString([]byte("short")))},
		{"empty", []byte("")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Unseal(&key, tc.blob)
			require.ErrorIs(t, err, ErrInvalidCiphertext)
		})
	}
}

func TestUnseal_NonceOnly(t *testing.T) {
	key := testKey()
	blob := base64.StdEncoding.EncodeToString(make([]byte, NonceSize))

	_, err := Unseal(&key, []byte(blob))
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestUnseal_IgnoresSurroundingWhitespace(t *testing.T) {
	key := testKey()

	blob, err := Seal(&key, []byte("data"))
	require.NoError(t, err)

	got, err := Unseal(&key, append(append([]byte("\n  "), blob...), '\n'))
	require.NoError(t, err)
	require.Equal(t, "data", string(got))
}
