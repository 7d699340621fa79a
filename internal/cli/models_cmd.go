// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/simbo1905/mcp-switchboard/internal/cloud"
)

func newModelsCmd(opts *rootOptions) *cobra.Command {
	var (
		asJSON bool
		filter string
	)

	cmd := &cobra.Command{
		Use:     "models",
		Aliases: []string{"ls"},
		Short:   "List the models offered by the API",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.runtime()
			if err != nil {
				return err
			}
			models, err := rt.AvailableModels(cmd.Context())
			if err != nil {
				return err
			}
			models = filterModels(models, filter)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(models)
			}

			if len(models) == 0 {
				fmt.Fprintln(out, "No models found.")
				return nil
			}

			current := rt.GetCurrentModel()
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, " \tID\tNAME\tORGANIZATION\n")
			for _, m := range models {
				marker := " "
				if m.ID == current {
					marker = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", marker, m.ID, m.DisplayName, m.Organization)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().StringVar(&filter, "filter", "", "Only show models whose id or organization contains this text")
	return cmd
}

func filterModels(models []cloud.ModelInfo, filter string) []cloud.ModelInfo {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		return models
	}
	var out []cloud.ModelInfo
	for _, m := range models {
		if strings.Contains(strings.ToLower(m.ID), filter) ||
			strings.Contains(strings.ToLower(m.Organization), filter) {
			out = append(out, m)
		}
	}
	return out
}
