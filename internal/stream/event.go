// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"fmt"

	"github.com/simbo1905/mcp-switchboard/internal/apperr"
)

// Event is one item of a session's event sequence. The set of
// implementations is closed: Content, Error and Complete.
//
// Consumers switch on the concrete type:
//
//	switch ev := ev.(type) {
//	case stream.Content:
//	    appendText(ev.Text)
//	case stream.Error:
//	    showError(ev.Message)
//	case stream.Complete:
//	    finish()
//	}
type Event interface {
	isEvent()
}

// Content carries one non-empty chunk of assistant text.
type Content struct {
	Text string
}

// Error is a terminal event carrying the failure description.
type Error struct {
	Kind    apperr.Kind
	Message string
}

// Complete is the terminal event of a stream that ended normally.
type Complete struct{}

func (Content) isEvent()  {}
func (Error) isEvent()    {}
func (Complete) isEvent() {}

func (e Error) String() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// IsTerminal reports whether ev ends a sequence.
func IsTerminal(ev Event) bool {
	switch ev.(type) {
	case Error, Complete:
		return true
	default:
		return false
	}
}

// errorEvent converts err into a terminal Error event. Messages come from
// apperr.Message so crypto failures stay opaque.
func errorEvent(err error) Error {
	kind, ok := apperr.KindOf(err)
	if !ok {
		kind = apperr.UpstreamTransport
	}
	return Error{Kind: kind, Message: apperr.Message(err)}
}
