// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/simbo1905/mcp-switchboard/internal/apperr"
)

// UnknownOrganization is used when a catalog entry names no organization.
const UnknownOrganization = "Unknown"

// ModelInfo is one entry of the model catalog.
type ModelInfo struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	Organization string `json:"organization"`
}

// ListModels fetches the model catalog. The endpoint may answer with a bare
// JSON array or an OpenAI-style {"data": [...]} envelope. Entries without a
// string id are skipped.
func (c *Client) ListModels(ctx context.Context, credential string) ([]ModelInfo, error) {
	const op = "list models"

	if strings.TrimSpace(credential) == "" {
		return nil, apperr.ErrNoCredential
	}
	if err := c.wait(ctx, op); err != nil {
		return nil, err
	}

	c.log.Info("Fetching available models")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.catalogURL, nil)
	if err != nil {
		return nil, apperr.New(apperr.UpstreamTransport, op, err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WithError(err).Error("Failed to fetch models")
		return nil, apperr.New(apperr.UpstreamTransport, op, err)
	}
	defer resp.Body.Close()

	// SECURITY: Limit response size to prevent memory exhaustion
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, apperr.New(apperr.UpstreamTransport, op, fmt.Errorf("failed to read response: %w", err))
	}
	if len(body) > MaxResponseSize {
		return nil, apperr.New(apperr.UpstreamTransport, op, fmt.Errorf("response exceeds %d bytes", MaxResponseSize))
	}

	if resp.StatusCode != http.StatusOK {
		err := apperr.New(apperr.UpstreamTransport, op, fmt.Errorf("API error (HTTP %d): %s", resp.StatusCode, errorMessage(resp.StatusCode, body)))
		c.log.WithError(err).Error("Failed to fetch models")
		return nil, err
	}

	models, err := decodeCatalog(body)
	if err != nil {
		c.log.WithError(err).Error("Failed to parse models response")
		return nil, apperr.New(apperr.UpstreamTransport, op, err)
	}

	c.log.WithField("count", len(models)).Info("Successfully fetched models")
	return models, nil
}

func decodeCatalog(body []byte) ([]ModelInfo, error) {
	body = bytes.TrimSpace(body)

	var entries []map[string]any
	switch {
	case bytes.HasPrefix(body, []byte("[")):
		if err := json.Unmarshal(body, &entries); err != nil {
			return nil, fmt.Errorf("invalid models response format: %w", err)
		}
	case bytes.HasPrefix(body, []byte("{")):
		var envelope struct {
			Data []map[string]any `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("invalid models response format: %w", err)
		}
		if envelope.Data == nil {
			return nil, errors.New("invalid models response format: no model list")
		}
		entries = envelope.Data
	default:
		return nil, errors.New("invalid models response format")
	}

	models := make([]ModelInfo, 0, len(entries))
	for _, e := range entries {
		id, _ := e["id"].(string)
		if id == "" {
			continue
		}
		m := ModelInfo{ID: id, DisplayName: id, Organization: UnknownOrganization}
		if v, ok := e["display_name"].(string); ok {
			m.DisplayName = v
		}
		if v, ok := e["organization"].(string); ok {
			m.Organization = v
		}
		models = append(models, m)
	}
	return models, nil
}

// errorMessage extracts a readable message from an error body, falling
// back to the status text.
func errorMessage(status int, body []byte) string {
	var parsed struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		var nested struct {
			Message string `json:"message"`
		}
		if len(parsed.Error) > 0 && json.Unmarshal(parsed.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		var flat string
		if len(parsed.Error) > 0 && json.Unmarshal(parsed.Error, &flat) == nil && flat != "" {
			return flat
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return http.StatusText(status)
	}
	const maxLen = 512
	if len(text) > maxLen {
		text = text[:maxLen] + "..."
	}
	return text
}
