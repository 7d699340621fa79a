// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// settings_cmd.go - Non-secret settings (settings.toml) management.
//
// Command: settings
//
// Subcommands:
//   list            Print every setting with its effective value
//   get KEY         Print one setting (dot notation, e.g. api.base_url)
//   set KEY VALUE   Change one setting in settings.toml
//   path            Print the settings file path
//
// Environment overrides are shown by list/get but never written by set.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simbo1905/mcp-switchboard/internal/config"
)

func newSettingsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "View and change settings (API endpoint, logging, history, UI)",
	}
	cmd.AddCommand(
		newSettingsListCmd(opts),
		newSettingsGetCmd(opts),
		newSettingsSetCmd(opts),
		newSettingsPathCmd(opts),
	)
	return cmd
}

func newSettingsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := opts.appDir()
			if err != nil {
				return err
			}
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, key := range config.AllKeys() {
				v, err := cfg.Get(key)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s = %v\n", LabelStyle.Copy().Width(30).Render(key), v)
			}
			return nil
		},
	}
}

func newSettingsGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := opts.appDir()
			if err != nil {
				return err
			}
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			v, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func newSettingsSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one setting",
		Example: `  switchboard settings set api.stream_idle_timeout_secs 300
  switchboard settings set log.level debug
  switchboard settings set history.enabled false`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := opts.appDir()
			if err != nil {
				return err
			}
			cfg, err := config.LoadFile(dir)
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return &ValidationError{Field: args[0], Value: args[1], Reason: err.Error()}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(cfg, dir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", SuccessStyle.Render("Saved:"), args[0], args[1])
			return nil
		},
	}
}

func newSettingsPathCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the settings file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := opts.appDir()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), config.Path(dir))
			return nil
		},
	}
}
