// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/simbo1905/mcp-switchboard/internal/util"
)

// =============================================================================
// SESSION LIST FORMATTING
// =============================================================================

// FormatEntries renders sessions as a fixed-width table.
func FormatEntries(entries []Entry) string {
	if len(entries) == 0 {
		return "No sessions recorded."
	}

	var sb strings.Builder
	sb.WriteString(formatPadded("Started", 17) + " " +
		formatPadded("Outcome", 9) + " " +
		formatPadded("Chars", 7) + " " +
		formatPadded("Time", 7) + " Model\n")
	sb.WriteString(strings.Repeat("-", 72) + "\n")

	for _, e := range entries {
		outcome := e.Outcome
		model := util.TruncateWidth(e.Model, 28)
		if e.Error != "" {
			model += "  " + util.TruncateWidth(e.Error, 40)
		}

		sb.WriteString(formatPadded(e.StartedAt.Format("2006-01-02 15:04"), 17) + " " +
			formatPadded(outcome, 9) + " " +
			formatPadded(strconv.Itoa(e.Chars), 7) + " " +
			formatPadded(formatDuration(e), 7) + " " +
			model + "\n")
	}
	return sb.String()
}

// FormatStats renders aggregate counts, outcomes sorted by name.
func FormatStats(s Stats) string {
	if s.Sessions == 0 {
		return "No sessions recorded."
	}

	outcomes := make([]string, 0, len(s.ByOutcome))
	for o := range s.ByOutcome {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)

	parts := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		parts = append(parts, fmt.Sprintf("%s=%d", o, s.ByOutcome[o]))
	}

	return fmt.Sprintf("%d sessions (%s), %d characters received, last %s",
		s.Sessions, strings.Join(parts, ", "), s.TotalChars, s.Last.Format("2006-01-02 15:04"))
}

func formatDuration(e Entry) string {
	d := e.Duration()
	if d < 0 {
		return "-"
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// formatPadded pads s with spaces to width terminal columns.
func formatPadded(s string, width int) string {
	return runewidth.FillRight(s, width)
}
