// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// Theme holds the styles used by the chat view.
type Theme struct {
	Header    lipgloss.Style
	StatusBar lipgloss.Style

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Message        lipgloss.Style
	Error          lipgloss.Style
	Warning        lipgloss.Style
	Success        lipgloss.Style
	Muted          lipgloss.Style
	Prompt         lipgloss.Style
}

// NewTheme builds the default theme.
func NewTheme() *Theme {
	return &Theme{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(Cyan).
			Background(SurfaceDim).
			Padding(0, 1),
		StatusBar: lipgloss.NewStyle().
			Foreground(TextSecondary).
			Background(SurfaceDim),

		UserLabel:      lipgloss.NewStyle().Bold(true).Foreground(Cyan),
		AssistantLabel: lipgloss.NewStyle().Bold(true).Foreground(Purple),
		Message:        lipgloss.NewStyle().Foreground(TextPrimary),
		Error:          lipgloss.NewStyle().Foreground(Rose),
		Warning:        lipgloss.NewStyle().Foreground(Amber),
		Success:        lipgloss.NewStyle().Foreground(Emerald),
		Muted:          lipgloss.NewStyle().Foreground(TextMuted),
		Prompt:         lipgloss.NewStyle().Bold(true).Foreground(Cyan),
	}
}
