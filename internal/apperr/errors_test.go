// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package apperr

import (
	"crypto/aes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf_Wrapped(t *testing.T) {
	base := New(StorageIO, "write config", errors.New("disk full"))
	wrapped := fmt.Errorf("saving: %w", base)

	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, StorageIO, kind)
	assert.True(t, Is(wrapped, StorageIO))
	assert.False(t, Is(wrapped, CryptoFailure))

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

// Crypto failures must not reveal whether the key or the tag was at fault.
func TestError_CryptoMessageIsOpaque(t *testing.T) {
	tag := New(CryptoFailure, "load config", errors.New("cipher: message authentication failed"))
	key := New(CryptoFailure, "load config", aes.KeySizeError(7))

	assert.Equal(t, tag.Error(), key.Error())
	assert.NotContains(t, tag.Error(), "authentication")
	assert.Equal(t, cryptoMessage, Message(tag))
}

func TestError_Rendering(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{New(StorageIO, "read config", errors.New("permission denied")), "configuration storage error: read config: permission denied"},
		{New(Serialization, "", errors.New("bad json")), "configuration storage error: bad json"},
		{New(UpstreamTransport, "open stream", errors.New("429")), "upstream error: open stream: 429"},
		{ErrNoCredential, "precondition failed: No API key configured"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
	assert.Equal(t, "No API key configured", Message(ErrNoCredential))
	assert.Equal(t, "", Message(nil))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "upstream_transport", UpstreamTransport.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
