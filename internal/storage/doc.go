// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage keeps the relay session history for the switchboard.
//
// One row is written per finished stream session: id, model, timing,
// outcome and size. Message text and credentials are never stored.
//
// # Key Types
//
//   - History: SQLite-backed session log
//   - Entry: one recorded session
//   - Stats: aggregate counts
//
// # Usage
//
//	h, err := storage.OpenHistory(path, logger)
//	defer h.Close()
//	opts = append(opts, stream.WithObserver(h.Observe))
//
// # Storage Location
//
// The database lives at <user config dir>/mcp-switchboard/history.db
// unless [history] path says otherwise.
package storage
