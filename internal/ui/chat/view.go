// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

func (m Model) renderHeader() string {
	return m.theme.Header.Render(fitLine("switchboard", m.model, m.width-2))
}

func (m Model) renderStatus() string {
	var left string
	switch m.state {
	case StateStreaming:
		left = m.spinner.View() + " Streaming... Esc to cancel"
		if m.status != "" {
			left = m.spinner.View() + " " + m.status
		}
	default:
		left = m.status
		if left == "" {
			left = "Enter to send, Ctrl+C to quit"
		}
	}
	return m.theme.StatusBar.Render(fitLine(left, "", m.width))
}

func (m Model) renderTranscript() string {
	if len(m.turns) == 0 {
		return m.theme.Muted.Render("No messages yet.")
	}

	width := m.width
	if m.opts.WordWrap > 0 && m.opts.WordWrap < width {
		width = m.opts.WordWrap
	}
	body := lipgloss.NewStyle().Width(max(width, 20))

	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString("\n")
		}
		switch t.role {
		case roleUser:
			b.WriteString(m.theme.UserLabel.Render("You"))
			b.WriteString("\n")
			b.WriteString(body.Render(t.text))
		case roleAssistant:
			b.WriteString(m.theme.AssistantLabel.Render("Assistant"))
			b.WriteString("\n")
			if t.text != "" {
				b.WriteString(m.theme.Message.Render(body.Render(t.text)))
				b.WriteString("\n")
			}
			if t.cancelled {
				b.WriteString(m.theme.Warning.Render("[Cancelled]"))
				b.WriteString("\n")
			}
			if t.err != "" {
				b.WriteString(m.theme.Error.Render(body.Render("Error: " + t.err)))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// fitLine lays out left and right on one line of the given display width.
func fitLine(left, right string, width int) string {
	if width <= 0 {
		return left
	}
	rw := runewidth.StringWidth(right)
	if rw >= width {
		return runewidth.Truncate(right, width, "...")
	}
	avail := width - rw
	if right != "" {
		avail--
	}
	left = runewidth.Truncate(left, avail, "...")
	if right == "" {
		return runewidth.FillRight(left, width)
	}
	return runewidth.FillRight(left, avail) + " " + right
}
