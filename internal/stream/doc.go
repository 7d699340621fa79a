// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream relays a remote token stream to the UI as an ordered,
// terminating sequence of events.
//
// A Session moves through three states:
//
//	Idle -> Streaming -> Terminated
//
// The credential and model are resolved before the upstream is opened; a
// missing credential terminates the session with a single Error event and
// no upstream is ever opened. While streaming, every non-empty chunk becomes
// a Content event in arrival order and empty chunks are dropped. The
// sequence ends with exactly one Complete (natural end of stream) or Error
// (upstream failure, idle timeout, cancellation) and nothing follows it.
//
// Sessions are single pass: there are no retries. A consumer that stops
// iterating abandons the session, which closes the upstream and emits
// nothing further.
package stream
