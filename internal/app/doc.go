// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app wires the secret store, the completion client and the session
// history into a single Service.
//
// The Service methods are the operations a user interface needs:
//
//	GetAPIConfig / SaveAPIConfig / HasAPIConfig
//	GetCurrentModel / SetPreferredModel
//	AvailableModels
//	StreamChat
//	LogInfo
//
// Open builds a Runtime from the settings in the application directory; the
// command line and the chat view both start from it.
package app
