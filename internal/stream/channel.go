// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"iter"
)

// Channel runs seq on its own goroutine and delivers the events on the
// returned channel, which is closed after the last event. Cancelling ctx
// abandons seq; events not yet received are dropped.
func Channel(ctx context.Context, seq iter.Seq[Event]) <-chan Event {
	ch := make(chan Event)
	go func() {
		defer close(ch)
		for ev := range seq {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
