// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the switchboard command line.
//
// Commands are built with cobra; each command opens the application
// runtime (app.Open) lazily, so path, version and reset commands work even
// when the settings file or the credential store is broken.
//
// # Commands
//
//	chat [MESSAGE...]      stream an answer, or start a line-editing REPL
//	tui                    full-screen chat view
//	models                 list models offered by the API
//	config ...             API key and preferred model (encrypted store)
//	settings ...           non-secret settings in settings.toml
//	history ...            recorded chat sessions
//	version                build information
//
// # Exit Codes
//
//	0  success
//	1  any error; the message and a hint are printed to stderr
package cli
