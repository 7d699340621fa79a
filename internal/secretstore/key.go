// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package secretstore

import (
	"crypto/sha256"
	"os"
	"strings"
)

// KeySize is the size of the AES-256 key (32 bytes / 256 bits).
const KeySize = 32

// keySalt is mixed into every derivation. Never change it: existing files
// would become undecryptable.
const keySalt = "mcp-switchboard-config-key"

// Identity is the machine/user material the key is derived from.
type Identity struct {
	User string
	Host string
}

// CurrentIdentity reads the effective user name and host name of the
// running process. It never fails; missing parts fall back to fixed values.
func CurrentIdentity() Identity {
	user := firstNonEmpty(os.Getenv("USER"), os.Getenv("USERNAME"), "unknown")

	host, err := os.Hostname()
	if err != nil {
		host = ""
	}

	return Identity{User: user, Host: host}
}

// DeriveKey derives the store key for id. Same identity, same key.
func DeriveKey(id Identity) [KeySize]byte {
	h := sha256.New()
	h.Write([]byte(id.User + ":" + id.Host))
	h.Write([]byte(keySalt))

	var key [KeySize]byte
	copy(key[:], h.Sum(nil))
	return key
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
