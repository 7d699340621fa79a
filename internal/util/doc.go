// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the switchboard packages.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe replace of a whole file (temp, fsync, rename)
//
// String Utilities:
//   - TruncateWidth: display-width aware truncation for status lines
//   - Mask: redacts a credential for logs and `config get`
//
// # Usage
//
//	// Replace the encrypted secret file without ever exposing a partial write
//	err := util.AtomicWriteFile(path, blob, 0600, 0700)
//
//	// Never log a raw API key
//	log.WithField("key", util.Mask(key)).Debug("credential resolved")
package util
