// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package secretstore persists the completion API credential and the
// preferred model in a single encrypted file.
//
// # File Format
//
// The file holds base64 (standard alphabet, strict decoding) of
//
//	nonce (12 bytes) || AES-256-GCM ciphertext || tag (16 bytes)
//
// A fresh random nonce is drawn for every write. The plaintext is the JSON
// record {"together_ai_api_key": "...", "preferred_model": "..."}.
//
// # Key Derivation
//
// The 256-bit key is SHA-256 over "<user>:<host>" followed by a fixed
// application salt. It is recomputed whenever a Store is opened and never
// written anywhere, so the file decrypts only for the same user on the same
// machine. The material is guessable, which is acceptable for a single-user
// desktop secret and nothing more. Changing the scheme would orphan every
// existing file.
//
// # Precedence
//
// The TOGETHERAI_API_KEY environment variable, when set and non-empty, wins
// over the file and the file is not touched.
//
// # Writers
//
// Saves are read-modify-write of the whole record. They are serialized by
// an in-process mutex and an advisory lock on "<file>.lock", so a credential
// save and a model save never drop each other's field.
package secretstore
