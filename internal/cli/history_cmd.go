// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simbo1905/mcp-switchboard/internal/app"
	"github.com/simbo1905/mcp-switchboard/internal/storage"
)

var errHistoryDisabled = errors.New("session history is disabled (history.enabled = false)")

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent chat sessions",
		Long: `Show recent chat sessions: when they ran, which model answered, how
they ended and how much text was received. Message text is never recorded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := historyRuntime(opts)
			if err != nil {
				return err
			}
			entries, err := rt.History.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSuffix(storage.FormatEntries(entries), "\n"))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of sessions to show")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Summarize recorded sessions",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := historyRuntime(opts)
				if err != nil {
					return err
				}
				stats, err := rt.History.Stats(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), storage.FormatStats(stats))
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete all recorded sessions",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := historyRuntime(opts)
				if err != nil {
					return err
				}
				if err := rt.History.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("History cleared."))
				return nil
			},
		},
	)
	return cmd
}

func historyRuntime(opts *rootOptions) (*app.Runtime, error) {
	rt, err := opts.runtime()
	if err != nil {
		return nil, err
	}
	if rt.History == nil {
		return nil, errHistoryDisabled
	}
	return rt, nil
}
