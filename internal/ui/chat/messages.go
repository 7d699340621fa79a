// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/simbo1905/mcp-switchboard/internal/stream"
)

// StreamTickMsg triggers a render frame while an answer is streaming.
type StreamTickMsg struct {
	Time time.Time
}

// streamEventMsg carries one event of the answer with the given id.
type streamEventMsg struct {
	id int
	ev stream.Event
}

// streamClosedMsg reports that the event channel of an answer closed.
type streamClosedMsg struct {
	id int
}

// waitForEvent receives the next event from ch.
func waitForEvent(id int, ch <-chan stream.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return streamClosedMsg{id: id}
		}
		return streamEventMsg{id: id, ev: ev}
	}
}
