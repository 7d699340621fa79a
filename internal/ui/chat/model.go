// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/simbo1905/mcp-switchboard/internal/stream"
	"github.com/simbo1905/mcp-switchboard/internal/ui/styles"
)

// Chatter is the backend of the chat view.
type Chatter interface {
	StreamChat(ctx context.Context, message string, opts ...stream.Option) iter.Seq[stream.Event]
	GetCurrentModel() string
	LogInfo(message string)
}

// Options configures a Model.
type Options struct {
	// Model overrides the preferred model for every answer.
	Model string

	// WordWrap is the maximum transcript width; 0 uses the window width.
	WordWrap int

	Theme *styles.Theme
}

// State is the input state of the view.
type State int

const (
	StateReady State = iota
	StateStreaming
)

type role int

const (
	roleUser role = iota
	roleAssistant
)

// turn is one entry of the transcript.
type turn struct {
	role      role
	text      string
	err       string
	cancelled bool
}

// Model is the Bubble Tea model of the chat view.
type Model struct {
	ctx   context.Context
	svc   Chatter
	opts  Options
	theme *styles.Theme

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	turns []turn
	state State
	model string

	streamID int
	events   <-chan stream.Event
	buffer   *StreamingBuffer
	cancel   *cancelManager
	started  time.Time
	status   string

	width  int
	height int
}

// New creates the chat view. Cancelling ctx abandons any answer in flight.
func New(ctx context.Context, svc Chatter, opts Options) Model {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme()
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 8192
	ti.PromptStyle = opts.Theme.Prompt
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	m := Model{
		ctx:      ctx,
		svc:      svc,
		opts:     opts,
		theme:    opts.Theme,
		input:    ti,
		viewport: vp,
		spinner:  sp,
		buffer:   NewStreamingBuffer(),
		cancel:   newCancelManager(),
		width:    80,
		height:   24,
	}
	m.model = m.currentModel()
	svc.LogInfo("Chat view opened")
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// State returns the input state.
func (m Model) State() State {
	return m.state
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case streamEventMsg:
		return m.handleStreamEvent(msg)

	case streamClosedMsg:
		if msg.id != m.streamID || m.state != StateStreaming {
			return m, nil
		}
		return m.finishStream("stream ended without a result"), nil

	case StreamTickMsg:
		return m.handleStreamTick()

	case spinner.TickMsg:
		if m.state != StateStreaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	// header, status line and input take one line each
	m.viewport.Width = msg.Width
	m.viewport.Height = max(msg.Height-3, 1)
	m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 10)

	m.refresh()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.cancel.cancel()
		return m, tea.Quit

	case tea.KeyEsc:
		if m.state == StateStreaming && m.cancel.cancel() {
			m.status = "Cancelling..."
		}
		return m, nil

	case tea.KeyEnter:
		if m.state == StateStreaming {
			return m, nil
		}
		message := strings.TrimSpace(m.input.Value())
		if message == "" {
			return m, nil
		}
		switch strings.ToLower(message) {
		case "/quit", "/q", "exit", "quit":
			return m, tea.Quit
		}
		return m.startStream(message)

	case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.state == StateStreaming {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// startStream opens a session for message. The session context is cancelled
// by Esc; the channel context is the view's, so the terminal event of a
// cancelled session is still delivered.
func (m Model) startStream(message string) (tea.Model, tea.Cmd) {
	m.model = m.currentModel()

	var opts []stream.Option
	if m.opts.Model != "" {
		opts = append(opts, stream.WithModel(m.opts.Model))
	}

	sessCtx, cancel := context.WithCancel(m.ctx)
	m.cancel.set(cancel)

	m.streamID++
	m.events = stream.Channel(m.ctx, m.svc.StreamChat(sessCtx, message, opts...))
	m.state = StateStreaming
	m.started = time.Now()
	m.status = ""
	m.buffer.Reset()

	m.turns = append(m.turns, turn{role: roleUser, text: message}, turn{role: roleAssistant})
	m.input.Reset()
	m.refresh()

	return m, tea.Batch(waitForEvent(m.streamID, m.events), m.spinner.Tick, streamTickCmd())
}

func (m Model) handleStreamEvent(msg streamEventMsg) (tea.Model, tea.Cmd) {
	if msg.id != m.streamID || m.state != StateStreaming {
		return m, nil
	}

	switch ev := msg.ev.(type) {
	case stream.Content:
		m.buffer.Write(ev.Text)
		return m, waitForEvent(m.streamID, m.events)
	case stream.Complete:
		return m.finishStream(""), nil
	case stream.Error:
		return m.finishStream(ev.Message), nil
	}
	return m, waitForEvent(m.streamID, m.events)
}

func (m Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if m.state != StateStreaming {
		return m, nil
	}
	if text, ok := m.buffer.Flush(); ok {
		m.appendAnswer(text)
		m.refresh()
	}
	return m, streamTickCmd()
}

// finishStream closes the current answer; errText is empty on success.
func (m Model) finishStream(errText string) Model {
	if text, ok := m.buffer.ForceFlush(); ok {
		m.appendAnswer(text)
	}
	cancelled := m.cancel.clear()

	if last := len(m.turns) - 1; last >= 0 {
		switch {
		case cancelled:
			m.turns[last].cancelled = true
		case errText != "":
			m.turns[last].err = errText
		}
	}

	elapsed := time.Since(m.started).Seconds()
	switch {
	case cancelled:
		m.status = "Cancelled"
	case errText != "":
		m.status = fmt.Sprintf("Failed after %.1fs", elapsed)
	default:
		m.status = fmt.Sprintf("Answered in %.1fs", elapsed)
	}

	m.state = StateReady
	m.events = nil
	m.input.Focus()
	m.refresh()
	return m
}

func (m *Model) appendAnswer(text string) {
	if last := len(m.turns) - 1; last >= 0 && m.turns[last].role == roleAssistant {
		m.turns[last].text += text
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) currentModel() string {
	if m.opts.Model != "" {
		return m.opts.Model
	}
	return m.svc.GetCurrentModel()
}
