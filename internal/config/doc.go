// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides loading and management of the switchboard's
// non-secret settings.
//
// # Key Types
//
//   - Config: main settings structure
//   - APIConfig: completion endpoint, timeouts and rate limit
//   - LogConfig: log level, destination and format
//   - HistoryConfig: session history database
//   - UIConfig: terminal rendering
//
// # Configuration Precedence
//
// Settings are loaded from (in order of precedence):
//   - Environment variables (SWITCHBOARD_*)
//   - <user config dir>/mcp-switchboard/settings.toml
//   - Built-in defaults
//
// The API key and preferred model are not settings. They live in the
// encrypted secret store next to this file.
//
// # Usage
//
//	dir, _ := config.Dir()
//	cfg, err := config.Load(dir)
//	if err != nil {
//	    return err
//	}
//	timeout := cfg.RequestTimeout()
package config
