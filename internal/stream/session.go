// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/simbo1905/mcp-switchboard/internal/apperr"
	"github.com/simbo1905/mcp-switchboard/internal/logging"
)

// Chunk is one item read from an upstream token stream. Text may be empty
// (role-only or keep-alive deltas).
type Chunk struct {
	Text string
}

// Upstream is an open token stream. Recv blocks until the next chunk is
// available and returns io.EOF at the natural end of the stream. Close
// releases the connection and unblocks a pending Recv.
type Upstream interface {
	Recv() (Chunk, error)
	Close() error
}

// Request is what an Opener needs to start a completion.
type Request struct {
	Credential string
	Model      string
	Message    string
}

// Opener starts an upstream stream for a request.
type Opener interface {
	Open(ctx context.Context, req Request) (Upstream, error)
}

// CredentialSource resolves the credential and model for a session.
// *secretstore.Store satisfies it.
type CredentialSource interface {
	Credential() (string, bool, error)
	PreferredModel() string
}

// State is the lifecycle state of a Session.
type State int32

const (
	Idle State = iota
	Streaming
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Streaming:
		return "streaming"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Outcome is how a session ended.
type Outcome string

const (
	OutcomeComplete  Outcome = "complete"
	OutcomeError     Outcome = "error"
	OutcomeAbandoned Outcome = "abandoned"
)

// Summary describes a finished session. It never contains message text
// or the credential.
type Summary struct {
	ID        string
	Model     string
	Started   time.Time
	Ended     time.Time
	Outcome   Outcome
	Chunks    int
	Chars     int
	ErrorKind apperr.Kind
	Error     string
}

// Duration returns the wall time of the session.
func (s Summary) Duration() time.Duration {
	return s.Ended.Sub(s.Started)
}

// Option configures a Session.
type Option func(*Session)

// WithIdleTimeout terminates the session with an Error event when no
// upstream item arrives within d. Zero disables the watchdog.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.idle = d
		}
	}
}

// WithObserver registers fn to be called exactly once with the session
// summary after the session terminates or is abandoned.
func WithObserver(fn func(Summary)) Option {
	return func(s *Session) {
		s.observer = fn
	}
}

// WithModel overrides the preferred model for this session only.
func WithModel(model string) Option {
	return func(s *Session) {
		s.model = model
	}
}

// WithLogger sets the session logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// Session relays one chat request. It is single use: Events may be
// iterated once.
type Session struct {
	id       string
	creds    CredentialSource
	opener   Opener
	message  string
	model    string
	idle     time.Duration
	observer func(Summary)
	log      logrus.FieldLogger

	state atomic.Int32
	used  atomic.Bool
}

// NewSession creates an Idle session for message.
func NewSession(creds CredentialSource, opener Opener, message string, opts ...Option) *Session {
	s := &Session{
		id:      uuid.NewString(),
		creds:   creds,
		opener:  opener,
		message: message,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.Component(s.log, "stream").WithField("session_id", s.id)
	return s
}

// Relay is shorthand for NewSession(...).Events(ctx).
func Relay(ctx context.Context, creds CredentialSource, opener Opener, message string, opts ...Option) iter.Seq[Event] {
	return NewSession(creds, opener, message, opts...).Events(ctx)
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state.
func (s *Session) State() State {
	return State(s.state.Load())
}

type recvResult struct {
	chunk Chunk
	err   error
}

// Events returns the session's event sequence. Iterating it runs the
// session on the caller's goroutine; breaking out of the loop abandons the
// session and closes the upstream. Cancelling ctx while the caller is still
// consuming yields one terminal Error.
func (s *Session) Events(ctx context.Context) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		if !s.used.CompareAndSwap(false, true) {
			yield(Error{Kind: apperr.PreconditionFailed, Message: "session already started"})
			return
		}

		sum := Summary{ID: s.id, Started: time.Now()}
		defer func() { s.finish(sum) }()

		terminate := func(ev Event) {
			s.state.Store(int32(Terminated))
			switch ev := ev.(type) {
			case Error:
				sum.Outcome = OutcomeError
				sum.ErrorKind = ev.Kind
				sum.Error = ev.Message
			case Complete:
				sum.Outcome = OutcomeComplete
			}
			yield(ev)
		}

		cred, ok, err := s.creds.Credential()
		if err != nil {
			terminate(errorEvent(err))
			return
		}
		if !ok {
			terminate(errorEvent(apperr.ErrNoCredential))
			return
		}

		model := s.model
		if model == "" {
			model = s.creds.PreferredModel()
		}
		sum.Model = model

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		up, err := s.opener.Open(ctx, Request{Credential: cred, Model: model, Message: s.message})
		if err != nil {
			terminate(errorEvent(err))
			return
		}
		s.state.Store(int32(Streaming))
		s.log.WithField("model", model).Debug("Stream opened")
		defer up.Close()

		// The pump reads exactly one item per request on next, so nothing
		// is read from upstream that the session will not deliver.
		next := make(chan struct{})
		items := make(chan recvResult)
		done := make(chan struct{})
		defer close(done)
		go pump(up, next, items, done)

		for {
			next <- struct{}{}

			res, err := s.wait(ctx, items)
			if err != nil {
				terminate(errorEvent(err))
				return
			}
			if errors.Is(res.err, io.EOF) {
				terminate(Complete{})
				return
			}
			if res.err != nil {
				terminate(errorEvent(res.err))
				return
			}
			if res.chunk.Text == "" {
				continue
			}

			sum.Chunks++
			sum.Chars += utf8.RuneCountInString(res.chunk.Text)
			if !yield(Content{Text: res.chunk.Text}) {
				s.state.Store(int32(Terminated))
				sum.Outcome = OutcomeAbandoned
				return
			}
		}
	}
}

func pump(up Upstream, next <-chan struct{}, items chan<- recvResult, done <-chan struct{}) {
	for {
		select {
		case <-next:
		case <-done:
			return
		}

		chunk, err := up.Recv()
		select {
		case items <- recvResult{chunk: chunk, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

// wait blocks for the next upstream item, the idle watchdog, or ctx.
func (s *Session) wait(ctx context.Context, items <-chan recvResult) (recvResult, error) {
	var idle <-chan time.Time
	if s.idle > 0 {
		t := time.NewTimer(s.idle)
		defer t.Stop()
		idle = t.C
	}

	select {
	case res := <-items:
		return res, nil
	case <-ctx.Done():
		return recvResult{}, apperr.New(apperr.UpstreamTransport, "receive", fmt.Errorf("stream cancelled: %w", ctx.Err()))
	case <-idle:
		return recvResult{}, apperr.New(apperr.UpstreamTransport, "receive", fmt.Errorf("upstream idle for %s", s.idle))
	}
}

func (s *Session) finish(sum Summary) {
	sum.Ended = time.Now()
	if sum.Outcome == "" {
		sum.Outcome = OutcomeAbandoned
	}
	s.state.Store(int32(Terminated))

	entry := s.log.WithFields(logrus.Fields{
		"model":    sum.Model,
		"outcome":  sum.Outcome,
		"chunks":   sum.Chunks,
		"chars":    sum.Chars,
		"duration": sum.Duration().String(),
	})
	if sum.Outcome == OutcomeError {
		entry.WithField("error_kind", sum.ErrorKind.String()).Warn("Stream session failed: " + sum.Error)
	} else {
		entry.Info("Stream session finished")
	}

	if s.observer != nil {
		s.observer(sum)
	}
}
