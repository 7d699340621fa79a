// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Root command and shared runtime wiring for switchboard.
//
// Every subcommand opens the application Runtime lazily through
// rootOptions.runtime so that commands that only print paths or versions
// never touch the secret file or the history database.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/simbo1905/mcp-switchboard/internal/app"
	"github.com/simbo1905/mcp-switchboard/internal/secretstore"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions holds persistent flags and the lazily opened runtime.
type rootOptions struct {
	dir string
	rt  *app.Runtime
}

// runtime opens the application runtime on first use.
func (o *rootOptions) runtime() (*app.Runtime, error) {
	if o.rt != nil {
		return o.rt, nil
	}
	dir, err := o.appDir()
	if err != nil {
		return nil, err
	}
	rt, err := app.Open(dir)
	if err != nil {
		return nil, err
	}
	o.rt = rt
	return rt, nil
}

// appDir resolves --dir, falling back to the per-user directory.
func (o *rootOptions) appDir() (string, error) {
	if o.dir != "" {
		return o.dir, nil
	}
	return secretstore.DefaultDir()
}

func (o *rootOptions) close() {
	if o.rt != nil {
		o.rt.Close()
		o.rt = nil
	}
}

// newRootCmd builds the switchboard command tree.
func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "switchboard",
		Short: "Chat with hosted models from the terminal",
		Long: `switchboard keeps your API key encrypted on disk and streams chat
completions from an OpenAI-compatible endpoint (Together AI by default).

The key can also be supplied through the ` + secretstore.EnvAPIKey + ` environment
variable, which always takes precedence over the stored key.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.dir, "dir", "", "Application directory (default: user config dir/"+secretstore.AppDirName+")")

	root.AddCommand(
		newConfigCmd(opts),
		newSettingsCmd(opts),
		newChatCmd(opts),
		newModelsCmd(opts),
		newHistoryCmd(opts),
		newTUICmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI against os.Args and returns the process exit code.
func Execute() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	opts := &rootOptions{}
	defer opts.close()

	root := newRootCmd(opts)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		printError(stderr, err)
		return ExitGeneralError
	}
	return ExitSuccess
}

// =============================================================================
// VERSION
// =============================================================================

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "switchboard version %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", GitCommit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", BuildDate)
		},
	}
}
