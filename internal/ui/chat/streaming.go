// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// frameInterval caps transcript re-rendering at about 30fps.
const frameInterval = 33 * time.Millisecond

// StreamingBuffer batches streamed text between frames. A flush happens
// when batchSize writes have accumulated or frameInterval has passed since
// the previous flush, whichever comes first.
type StreamingBuffer struct {
	mu        sync.Mutex
	buf       strings.Builder
	writes    int
	lastFlush time.Time
	batchSize int
	interval  time.Duration
}

// NewStreamingBuffer creates a buffer flushing every 15 writes or every
// frame.
func NewStreamingBuffer() *StreamingBuffer {
	return NewStreamingBufferWithConfig(15, frameInterval)
}

// NewStreamingBufferWithConfig creates a buffer with explicit thresholds.
func NewStreamingBufferWithConfig(batchSize int, interval time.Duration) *StreamingBuffer {
	if batchSize <= 0 {
		batchSize = 15
	}
	if interval <= 0 {
		interval = frameInterval
	}
	return &StreamingBuffer{
		batchSize: batchSize,
		interval:  interval,
		lastFlush: time.Now(),
	}
}

// Write appends text.
func (sb *StreamingBuffer) Write(text string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buf.WriteString(text)
	sb.writes++
}

// Flush returns the buffered text when a threshold has been reached.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if sb.buf.Len() == 0 {
		return "", false
	}
	if sb.writes < sb.batchSize && time.Since(sb.lastFlush) < sb.interval {
		return "", false
	}
	return sb.takeLocked(), true
}

// ForceFlush returns everything buffered regardless of thresholds.
func (sb *StreamingBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if sb.buf.Len() == 0 {
		return "", false
	}
	return sb.takeLocked(), true
}

// Reset drops buffered text.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buf.Reset()
	sb.writes = 0
	sb.lastFlush = time.Now()
}

// Pending returns the number of writes since the last flush.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.writes
}

func (sb *StreamingBuffer) takeLocked() string {
	s := sb.buf.String()
	sb.buf.Reset()
	sb.writes = 0
	sb.lastFlush = time.Now()
	return s
}

// streamTickCmd schedules the next render frame.
func streamTickCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
