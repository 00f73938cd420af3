// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the room chat view for the TUI.
//
// This file defines all Bubble Tea message types used by the chat
// interface. Messages are organized into the following categories:
//   - Room lifecycle: creation, join results, remote pushes
//   - Streaming: stream start, token delivery, completion, errors
//   - Persistence: write-back confirmations and failures
//   - Export: transcript export results
//   - Errors: error display and dismissal
//
// All message types follow Bubble Tea conventions and are immutable.
package chat

import (
	"time"

	"github.com/jeranaias/roomchat-tui/internal/roomstore"
)

// =============================================================================
// ROOM LIFECYCLE MESSAGES
// =============================================================================

// RoomCreatedMsg reports the result of creating a fresh room.
type RoomCreatedMsg struct {
	RoomID string
	Err    error
}

// RoomJoinedMsg reports the result of joining a room: the seeded
// history and the live push subscription, or the failure.
type RoomJoinedMsg struct {
	Gen     uint64
	RoomID  string
	Records []roomstore.Record
	Sub     *roomstore.Subscription
	Err     error
}

// RemoteInsertMsg delivers one record pushed from the room feed.
// Delivery is at-least-once; the reconciler deduplicates.
type RemoteInsertMsg struct {
	Gen    uint64
	Record roomstore.Record
}

// FeedClosedMsg signals that the push subscription terminated.
type FeedClosedMsg struct {
	Gen uint64
	Err error
}

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamStartMsg signals that a completion stream has begun.
type StreamStartMsg struct {
	Gen       uint64
	StartTime time.Time
}

// StreamTokenMsg delivers batched tokens from the stream.
type StreamTokenMsg struct {
	Gen   uint64
	Token string
}

// StreamTickMsg drives flushes of the streaming buffer at the capped
// frame rate.
type StreamTickMsg struct {
	Time time.Time
}

// StreamCompleteMsg signals that streaming has finished.
type StreamCompleteMsg struct {
	Gen uint64
}

// StreamErrorMsg signals an error during streaming.
type StreamErrorMsg struct {
	Gen uint64
	Err error
}

// =============================================================================
// PERSISTENCE MESSAGES
// =============================================================================

// PersistResultMsg reports the outcome of writing a message to the
// room store. On success Record carries the durable identity; the
// confirmation echo on the feed performs the actual adoption, so a
// successful result is mostly informational. On failure the message
// with the given correlation id is flagged unsynced.
type PersistResultMsg struct {
	Gen           uint64
	CorrelationID string
	Record        roomstore.Record
	Err           error
}

// =============================================================================
// EXPORT MESSAGES
// =============================================================================

// ExportCompleteMsg reports the result of a transcript export.
type ExportCompleteMsg struct {
	Path string
	Err  error
}

// =============================================================================
// ERROR MESSAGES
// =============================================================================

// ErrorMsg displays an error to the user.
type ErrorMsg struct {
	Title   string
	Message string
}

// ErrorDismissMsg dismisses the current error display.
type ErrorDismissMsg struct{}
