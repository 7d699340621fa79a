// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud is the client for the Together AI chat-completion API.
//
// Together exposes an OpenAI-compatible endpoint, so streaming goes through
// go-openai with a base URL override. The model catalog is a plain GET on
// /models and is decoded here.
//
// # Key Types
//
//   - Client: implements stream.Opener and lists the model catalog
//   - ModelInfo: one catalog entry
//
// # Usage
//
//	client := cloud.NewClient(cloud.Options{})
//	seq := stream.Relay(ctx, store, client, "Hello")
//
// # Security
//
// Credentials are passed per request and never stored on the Client or
// logged. All requests use TLS 1.2+.
package cloud
