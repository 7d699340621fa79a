// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Chat command handler for switchboard.
//
// Command: chat
// Short:   Send a message, or start an interactive chat
//
// Examples:
//   switchboard chat "Explain TCP slow start"   One-shot, streamed to stdout
//   echo "hello" | switchboard chat             Message read from stdin
//   switchboard chat                            Interactive REPL
//   switchboard chat --model org/model "hi"     Override the preferred model
//   switchboard chat --render "hi"              Render the answer as markdown
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /model [name]       Show or switch model for this chat
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel current generation
//   Ctrl+D              Exit chat
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/simbo1905/mcp-switchboard/internal/app"
	"github.com/simbo1905/mcp-switchboard/internal/apperr"
	"github.com/simbo1905/mcp-switchboard/internal/config"
	"github.com/simbo1905/mcp-switchboard/internal/stream"
)

// historyFileName is the REPL input history inside the app directory.
const historyFileName = "chat_history"

// chatOptions holds flags for one chat invocation.
type chatOptions struct {
	model  string
	render bool
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	co := &chatOptions{}

	cmd := &cobra.Command{
		Use:   "chat [MESSAGE...]",
		Short: "Send a message, or start an interactive chat",
		Long: `Send a message and stream the answer to stdout.

Without a message, chat reads one from stdin when stdin is piped, and
otherwise starts an interactive session with line editing and history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.runtime()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("render") {
				co.render = rt.Config.UI.RenderMarkdown
			}

			if len(args) > 0 {
				return oneShot(cmd, rt, co, strings.Join(args, " "))
			}
			if !IsTTY() {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read message from stdin: %w", err)
				}
				return oneShot(cmd, rt, co, string(data))
			}
			return repl(cmd, rt, co)
		},
	}

	cmd.Flags().StringVarP(&co.model, "model", "m", "", "Use this model instead of the preferred one")
	cmd.Flags().BoolVar(&co.render, "render", false, "Render the completed answer as markdown (default from ui.render_markdown)")
	return cmd
}

func oneShot(cmd *cobra.Command, rt *app.Runtime, co *chatOptions, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return &ValidationError{Field: "message", Reason: "must not be empty"}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	return relay(ctx, cmd.OutOrStdout(), rt, co, message)
}

// relay streams one answer to w. With rendering enabled the answer is
// collected and rendered once the stream completes.
func relay(ctx context.Context, w io.Writer, rt *app.Runtime, co *chatOptions, message string) error {
	var extra []stream.Option
	if co.model != "" {
		extra = append(extra, stream.WithModel(co.model))
	}

	var answer strings.Builder
	for ev := range rt.StreamChat(ctx, message, extra...) {
		switch ev := ev.(type) {
		case stream.Content:
			if co.render {
				answer.WriteString(ev.Text)
			} else {
				fmt.Fprint(w, ev.Text)
			}
		case stream.Complete:
			if co.render {
				fmt.Fprint(w, renderMarkdown(answer.String(), rt.Config.UI.WordWrap))
			} else {
				fmt.Fprintln(w)
			}
			return nil
		case stream.Error:
			if !co.render {
				fmt.Fprintln(w)
			}
			return eventError(ev)
		}
	}
	return nil
}

// eventError turns a terminal Error event back into an error value.
func eventError(ev stream.Error) error {
	if ev.Kind == apperr.PreconditionFailed && ev.Message == apperr.Message(apperr.ErrNoCredential) {
		return apperr.ErrNoCredential
	}
	return apperr.New(ev.Kind, "chat", errors.New(ev.Message))
}

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// renderMarkdown renders content for terminal display, returning it unchanged
// when the renderer cannot be built or fails.
func renderMarkdown(content string, wrap int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI whose history lives in dir.
func NewChatCLI(dir string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(dir, historyFileName),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history to file with secure permissions.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

func repl(cmd *cobra.Command, rt *app.Runtime, co *chatOptions) error {
	out := cmd.OutOrStdout()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	watchSettings(ctx, rt)

	input := NewChatCLI(rt.Dir)
	defer input.Close()

	printWelcome(out, rt, co)
	rt.LogInfo("Interactive chat started")

	for {
		line, err := input.ReadInput(PromptStyle.Render("switchboard> "))
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or a closed terminal
			fmt.Fprintln(out)
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return nil
		}
		if strings.HasPrefix(line, "/") {
			if !handleSlashCommand(out, rt, co, line) {
				return nil
			}
			continue
		}

		if err := replMessage(ctx, out, rt, co, line); err != nil {
			printError(cmd.ErrOrStderr(), err)
		}
	}
}

// replMessage streams one answer; Ctrl+C cancels only this answer.
func replMessage(parent context.Context, out io.Writer, rt *app.Runtime, co *chatOptions, message string) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	start := time.Now()
	fmt.Fprintln(out)
	err := relay(ctx, out, rt, co, message)
	if err != nil && ctx.Err() != nil && parent.Err() == nil {
		fmt.Fprintln(out, WarningStyle.Render("[Cancelled]"))
		return nil
	}
	if err == nil {
		fmt.Fprintln(out, DimStyle.Render(fmt.Sprintf("%s  %.1fs", modelName(rt, co), time.Since(start).Seconds())))
		fmt.Fprintln(out)
	}
	return err
}

func modelName(rt *app.Runtime, co *chatOptions) string {
	if co.model != "" {
		return co.model
	}
	return rt.GetCurrentModel()
}

// handleSlashCommand runs a REPL command and reports whether to continue.
func handleSlashCommand(out io.Writer, rt *app.Runtime, co *chatOptions, line string) bool {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "/quit", "/q", "/exit":
		return false
	case "/help", "/h":
		fmt.Fprintln(out, "  /model [name]   Show or switch the model for this chat")
		fmt.Fprintln(out, "  /quit           Exit")
		fmt.Fprintln(out, "  Ctrl+C          Cancel the current answer")
	case "/model":
		if len(fields) > 1 {
			co.model = fields[1]
		}
		fmt.Fprintln(out, RenderField("Model", modelName(rt, co)))
	default:
		fmt.Fprintln(out, WarningStyle.Render("Unknown command: "+fields[0]+" (try /help)"))
	}
	return true
}

func printWelcome(out io.Writer, rt *app.Runtime, co *chatOptions) {
	fmt.Fprintln(out, TitleStyle.Render("switchboard chat"))
	fmt.Fprintln(out, RenderField("Model", modelName(rt, co)))
	fmt.Fprintln(out, RenderField("Endpoint", rt.Client.BaseURL()))
	if !rt.HasAPIConfig() {
		fmt.Fprintln(out, WarningStyle.Render("No API key configured. Run 'switchboard config set-key'."))
	}
	fmt.Fprintln(out, DimStyle.Render("Type /help for commands, Ctrl+D to exit."))
	fmt.Fprintln(out, RenderSeparator())
}

// watchSettings applies settings.toml changes until ctx is done.
func watchSettings(ctx context.Context, rt *app.Runtime) {
	err := config.Watch(ctx, rt.Dir, config.DefaultDebounce, func(cfg *config.Config, err error) {
		if err != nil {
			rt.Logger.WithError(err).Warn("Ignoring invalid settings change")
			return
		}
		rt.Reload(cfg)
	})
	if err != nil {
		rt.Logger.WithError(err).Warn("Settings watch unavailable")
	}
}
