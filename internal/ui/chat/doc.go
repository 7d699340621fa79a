// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the Bubble Tea chat view of switchboard.

The view sends each submitted message to a Chatter (app.Service in
production) and consumes the resulting event sequence through
stream.Channel, one event per Bubble Tea message:

	Content   appended to a StreamingBuffer, flushed to the transcript at 30fps
	Complete  closes the answer
	Error     closes the answer with the error text

# Keys

	Enter    send the message
	Esc      cancel the answer being streamed
	PgUp/Dn  scroll the transcript
	Ctrl+C   quit

# Files

	model.go      Model, New, Init, Update
	view.go       View and status line
	messages.go   tea.Msg types and commands
	streaming.go  StreamingBuffer and the render tick
	cancel.go     thread-safe cancel function
*/
package chat
