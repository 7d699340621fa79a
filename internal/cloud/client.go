// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/simbo1905/mcp-switchboard/internal/apperr"
	"github.com/simbo1905/mcp-switchboard/internal/logging"
	"github.com/simbo1905/mcp-switchboard/internal/stream"
)

// Configuration constants for the Together AI API.
const (
	// DefaultBaseURL is the OpenAI-compatible API root.
	DefaultBaseURL = "https://api.together.xyz/v1"

	// DefaultTimeout bounds non-streaming requests and the wait for
	// response headers on streaming ones.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed catalog response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

// newTransport builds the pooled TLS 1.2+ transport shared by both clients.
// SECURITY: TLS verification required for production
func newTransport(headerTimeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: headerTimeout,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL string
	// CatalogURL defaults to BaseURL + "/models".
	CatalogURL string
	Timeout    time.Duration
	// RequestsPerMinute limits outgoing requests; zero means unlimited.
	RequestsPerMinute int
	// HTTPClient replaces both internal clients (tests).
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// Client talks to the completion API. It holds no credential and is safe
// for concurrent use.
type Client struct {
	baseURL    string
	catalogURL string

	// httpClient has an overall timeout; streamClient is bounded by the
	// request context only.
	httpClient   *http.Client
	streamClient *http.Client

	limiter *rate.Limiter
	log     logrus.FieldLogger
}

var _ stream.Opener = (*Client)(nil)

// NewClient creates a Client from opts.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.CatalogURL == "" {
		opts.CatalogURL = opts.BaseURL + "/models"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	c := &Client{
		baseURL:    opts.BaseURL,
		catalogURL: opts.CatalogURL,
		limiter:    newLimiter(opts.RequestsPerMinute),
		log:        logging.Component(opts.Logger, "cloud"),
	}

	if opts.HTTPClient != nil {
		c.httpClient = opts.HTTPClient
		c.streamClient = opts.HTTPClient
	} else {
		c.httpClient = &http.Client{Transport: newTransport(opts.Timeout), Timeout: opts.Timeout}
		// No overall timeout for streaming - controlled via context
		c.streamClient = &http.Client{Transport: newTransport(opts.Timeout)}
	}
	return c
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

// BaseURL returns the API root in use.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// wait blocks on the rate limiter.
func (c *Client) wait(ctx context.Context, op string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperr.New(apperr.UpstreamTransport, op, fmt.Errorf("rate limit wait: %w", err))
	}
	return nil
}

func (c *Client) api(credential string) *openai.Client {
	cfg := openai.DefaultConfig(credential)
	cfg.BaseURL = c.baseURL
	cfg.HTTPClient = c.streamClient
	return openai.NewClientWithConfig(cfg)
}

// Open starts a streaming chat completion for req. It implements
// stream.Opener.
func (c *Client) Open(ctx context.Context, req stream.Request) (stream.Upstream, error) {
	if strings.TrimSpace(req.Credential) == "" {
		return nil, apperr.ErrNoCredential
	}
	if err := c.wait(ctx, "open stream"); err != nil {
		return nil, err
	}

	c.log.WithField("model", req.Model).Info("Creating streaming chat")

	s, err := c.api(req.Credential).CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Message},
		},
		Stream: true,
	})
	if err != nil {
		err = upstreamError("open stream", err)
		c.log.WithError(err).Error("Failed to open stream")
		return nil, err
	}
	return newChatStream(s), nil
}

// upstreamError maps a go-openai error into the UpstreamTransport kind,
// keeping the API's own message when there is one.
func upstreamError(op string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.HTTPStatusCode)
		}
		return apperr.New(apperr.UpstreamTransport, op, fmt.Errorf("API error (HTTP %d): %s", apiErr.HTTPStatusCode, msg))
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return apperr.New(apperr.UpstreamTransport, op, fmt.Errorf("request failed (HTTP %d): %s", reqErr.HTTPStatusCode, http.StatusText(reqErr.HTTPStatusCode)))
	}

	return apperr.New(apperr.UpstreamTransport, op, err)
}
