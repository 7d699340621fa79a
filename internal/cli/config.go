// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - API key and preferred model management.
//
// Command: config
// Short:   Manage the encrypted API key and preferred model
//
// Subcommands:
//   has                 Report whether an API key is configured
//   get [--show]        Print the effective API key (masked by default)
//   set-key [KEY]       Store an API key (prompted without echo if omitted)
//   model               Print the preferred model
//   set-model MODEL     Store the preferred model
//   path                Print the encrypted file path
//   reset               Delete the encrypted file
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/simbo1905/mcp-switchboard/internal/apperr"
	"github.com/simbo1905/mcp-switchboard/internal/secretstore"
	"github.com/simbo1905/mcp-switchboard/internal/util"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the encrypted API key and preferred model",
	}

	cmd.AddCommand(
		newConfigHasCmd(opts),
		newConfigGetCmd(opts),
		newConfigSetKeyCmd(opts),
		newConfigModelCmd(opts),
		newConfigSetModelCmd(opts),
		newConfigPathCmd(opts),
		newConfigResetCmd(opts),
	)
	return cmd
}

func newConfigHasCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "has",
		Short: "Report whether an API key is configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.runtime()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !rt.HasAPIConfig() {
				fmt.Fprintln(out, "no")
				return nil
			}
			fmt.Fprintf(out, "yes (%s)\n", rt.Store.Source())
			return nil
		},
	}
}

func newConfigGetCmd(opts *rootOptions) *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the effective API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.runtime()
			if err != nil {
				return err
			}
			key, ok, err := rt.GetAPIConfig()
			if err != nil {
				return err
			}
			if !ok {
				return apperr.ErrNoCredential
			}
			if !show {
				key = util.Mask(key)
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "Print the key unmasked")
	return cmd
}

func newConfigSetKeyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-key [KEY]",
		Short: "Store an API key, encrypted",
		Long: `Store an API key in the encrypted configuration file.

Without an argument the key is read from the terminal without echo, which
keeps it out of shell history.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.runtime()
			if err != nil {
				return err
			}

			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				key, err = readSecret(cmd.ErrOrStderr(), "Enter API key: ")
				if err != nil {
					return err
				}
			}

			if err := rt.SaveAPIConfig(key); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, SuccessStyle.Render("API key saved."))
			if rt.Store.Source() == secretstore.SourceEnvironment {
				fmt.Fprintln(out, WarningStyle.Render(secretstore.EnvAPIKey+" is set and takes precedence over the stored key."))
			}
			return nil
		},
	}
}

func newConfigModelCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "model",
		Short: "Print the preferred model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.runtime()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rt.GetCurrentModel())
			return nil
		},
	}
}

func newConfigSetModelCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-model MODEL",
		Short: "Store the preferred model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.runtime()
			if err != nil {
				return err
			}
			if err := rt.SetPreferredModel(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("Preferred model set:"), rt.GetCurrentModel())
			return nil
		},
	}
}

func newConfigPathCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the encrypted configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := opts.appDir()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(dir, secretstore.FileName))
			return nil
		},
	}
}

func newConfigResetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the encrypted configuration file",
		Long: `Delete the encrypted configuration file, forgetting the stored API key
and preferred model. Use this when the file was copied from another
machine or user and can no longer be decrypted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := opts.appDir()
			if err != nil {
				return err
			}
			// Bypasses the runtime so a broken settings file cannot block a reset.
			store, err := secretstore.New(secretstore.Options{Dir: dir})
			if err != nil {
				return err
			}
			if err := store.Delete(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Stored configuration removed."))
			return nil
		},
	}
}
