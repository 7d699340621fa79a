// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/simbo1905/mcp-switchboard/internal/ui/chat"
)

func newTUICmd(opts *rootOptions) *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the full-screen chat view",
		Long: `Open the full-screen chat view. Enter sends a message, Esc cancels the
answer being streamed and Ctrl+C quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := RequiresTTY("open the chat view"); err != nil {
				return err
			}
			rt, err := opts.runtime()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			watchSettings(ctx, rt)

			m := chat.New(ctx, rt.Service, chat.Options{
				Model:    model,
				WordWrap: rt.Config.UI.WordWrap,
			})
			if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
				return fmt.Errorf("chat view failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Use this model instead of the preferred one")
	return cmd
}
