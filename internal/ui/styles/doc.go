// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the colors and styles of the switchboard chat view.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Colors (colors.go)

  - Purple - assistant messages
  - Cyan - brand color, user messages, prompt
  - Emerald - completed answers
  - Amber - warnings and cancelled answers
  - Rose - errors

# Theme (theme.go)

Theme bundles the styles the chat view renders with:

	theme := styles.NewTheme()
	header := theme.Header.Render("switchboard")

Status indicators are ASCII so they survive any terminal:

	StatusIndicators.Success   [OK]
	StatusIndicators.Error     [X]
*/
package styles
