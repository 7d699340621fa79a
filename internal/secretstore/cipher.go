// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package secretstore

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// NonceSize is the size of the nonce for AES-GCM (12 bytes / 96 bits).
const NonceSize = 12

var (
	// ErrInvalidCiphertext indicates the blob is not valid base64 or is
	// shorter than a nonce.
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
	// ErrDecryptionFailed indicates a wrong key or tampered data.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// blobEncoding rejects non-canonical padding bits, so every flipped
// character of a stored blob is detected.
var blobEncoding = base64.StdEncoding.Strict()

// nonceSource supplies nonces; replaced only in tests.
var nonceSource io.Reader = rand.Reader

func newGCM(key *[KeySize]byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext under key with a fresh random nonce and returns
// base64(nonce || ciphertext || tag).
func Seal(key *[KeySize]byte, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+gcm.Overhead())
	if _, err := io.ReadFull(nonceSource, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)

	out := make([]byte, blobEncoding.EncodedLen(len(sealed)))
	blobEncoding.Encode(out, sealed)
	return out, nil
}

// Unseal reverses Seal. Surrounding whitespace is ignored; anything else
// that is not exactly what Seal produced fails.
func Unseal(key *[KeySize]byte, blob []byte) ([]byte, error) {
	blob = bytes.TrimSpace(blob)

	combined := make([]byte, blobEncoding.DecodedLen(len(blob)))
	n, err := blobEncoding.Decode(combined, blob)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	combined = combined[:n]

	if len(combined) < NonceSize {
		return nil, ErrInvalidCiphertext
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, combined[:NonceSize], combined[NonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
