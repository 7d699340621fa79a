// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"errors"
	"io"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/simbo1905/mcp-switchboard/internal/stream"
)

// chatStream adapts a go-openai completion stream to stream.Upstream.
type chatStream struct {
	s    *openai.ChatCompletionStream
	once sync.Once
}

func newChatStream(s *openai.ChatCompletionStream) *chatStream {
	return &chatStream{s: s}
}

// Recv returns the next delta. Chunks without choices or content come back
// with empty Text; the session drops them.
func (c *chatStream) Recv() (stream.Chunk, error) {
	resp, err := c.s.Recv()
	if errors.Is(err, io.EOF) {
		return stream.Chunk{}, io.EOF
	}
	if err != nil {
		return stream.Chunk{}, upstreamError("receive", err)
	}

	if len(resp.Choices) == 0 {
		return stream.Chunk{}, nil
	}
	return stream.Chunk{Text: resp.Choices[0].Delta.Content}, nil
}

// Close releases the response body. Safe to call more than once.
func (c *chatStream) Close() error {
	c.once.Do(func() {
		c.s.Close()
	})
	return nil
}
