// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the UI boundary.
type Kind int

const (
	// Unknown is the zero Kind; it never appears on an *Error built by this module.
	Unknown Kind = iota
	ConfigDirectoryUnavailable
	StorageIO
	Serialization
	CryptoFailure
	PreconditionFailed
	UpstreamTransport
)

// String returns the stable name of the kind, used in logs and history rows.
func (k Kind) String() string {
	switch k {
	case ConfigDirectoryUnavailable:
		return "config_directory_unavailable"
	case StorageIO:
		return "storage_io"
	case Serialization:
		return "serialization"
	case CryptoFailure:
		return "crypto_failure"
	case PreconditionFailed:
		return "precondition_failed"
	case UpstreamTransport:
		return "upstream_transport"
	default:
		return "unknown"
	}
}

// cryptoMessage is the only text a CryptoFailure ever renders. Tag mismatch,
// wrong key and malformed encoding must look identical to the user.
const cryptoMessage = "could not decrypt stored configuration"

// Error is the single error type reported across package boundaries.
type Error struct {
	Kind Kind
	// Op names the operation that failed ("save credential", "open stream").
	Op  string
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Kind == CryptoFailure {
		if e.Op != "" {
			return fmt.Sprintf("configuration storage error: %s: %s", e.Op, cryptoMessage)
		}
		return "configuration storage error: " + cryptoMessage
	}

	prefix := "configuration storage error"
	switch e.Kind {
	case PreconditionFailed:
		prefix = "precondition failed"
	case UpstreamTransport:
		prefix = "upstream error"
	}

	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", prefix, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", prefix, e.Op)
	default:
		return prefix
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an *Error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return Unknown, false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// ErrNoCredential is returned when a relay is requested with no credential
// configured in either the environment or the secret file.
var ErrNoCredential = &Error{Kind: PreconditionFailed, Err: errors.New("No API key configured")}

// Message returns the user-facing text for err. For *Error values it is the
// cause alone, without the kind prefix, matching what the UI shows.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == CryptoFailure {
			return cryptoMessage
		}
		if e.Err != nil {
			return e.Err.Error()
		}
	}
	return err.Error()
}
