// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package apperr defines the error taxonomy shared by the secret store, the
// completion client and the streaming session.
//
// Every failure that crosses a package boundary is an *Error carrying one of
// six kinds:
//
//   - ConfigDirectoryUnavailable: the per-user configuration directory could
//     not be resolved or created
//   - StorageIO: reading, writing or locking the secret file failed
//   - Serialization: the plaintext record could not be encoded or decoded
//   - CryptoFailure: encryption, decoding or tag verification failed
//   - PreconditionFailed: no credential is configured for a relay
//   - UpstreamTransport: the completion API failed or the stream broke
//
// # Usage
//
//	if apperr.Is(err, apperr.CryptoFailure) {
//	    // stored file is present but unreadable
//	}
//
// Nothing in this package retries; retry policy belongs to callers.
package apperr
