// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reconcile maintains the locally-authoritative ordered view
// of a room's messages.
package reconcile

import (
	"github.com/jeranaias/roomchat-tui/internal/model"
	"github.com/jeranaias/roomchat-tui/internal/roomstore"
)

// =============================================================================
// OUTCOME TYPE
// =============================================================================

// Outcome describes what ApplyRemote did with a confirmation record.
type Outcome int

const (
	// OutcomeAdopted: an optimistic placeholder adopted the record's
	// durable identity in place.
	OutcomeAdopted Outcome = iota

	// OutcomeAppended: the record came from another participant (or
	// another tab) and was appended to the end of the view.
	OutcomeAppended

	// OutcomeDuplicate: the record's identity is already present; the
	// delivery was dropped. Expected under at-least-once delivery.
	OutcomeDuplicate
)

// String returns the outcome name for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeAdopted:
		return "adopted"
	case OutcomeAppended:
		return "appended"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View is the ordered message list for the active room.
//
// Invariants:
//   - no two entries share a non-zero identity
//   - at most one streaming bot message exists, and it is the tail
//   - entries keep their insertion position for the life of the view
type View struct {
	messages []*model.Message
}

// NewView creates an empty view.
func NewView() *View {
	return &View{messages: make([]*model.Message, 0)}
}

// Seed replaces the view wholesale with a fetched history. Called once
// per room activation, before any local mutation.
func (v *View) Seed(history []roomstore.Record) {
	v.messages = make([]*model.Message, 0, len(history))
	for _, rec := range history {
		// History can contain duplicates if the log was compacted
		// oddly; the identity invariant still holds.
		if rec.ID != 0 && v.indexOfID(rec.ID) >= 0 {
			continue
		}
		v.messages = append(v.messages, rec.Message())
	}
}

// Messages returns the ordered view for rendering. The slice is shared;
// callers must not mutate it.
func (v *View) Messages() []*model.Message {
	return v.messages
}

// Len returns the number of messages in the view.
func (v *View) Len() int {
	return len(v.messages)
}

// Last returns the most recent message, or nil if the view is empty.
func (v *View) Last() *model.Message {
	if len(v.messages) == 0 {
		return nil
	}
	return v.messages[len(v.messages)-1]
}

// =============================================================================
// LOCAL WRITE PATH
// =============================================================================

// SubmitUser optimistically appends a user message and returns the
// placeholder. The caller persists it asynchronously; the confirmation
// echo later adopts the durable identity via ApplyRemote.
func (v *View) SubmitUser(text string) *model.Message {
	msg := model.NewUserMessage(text)
	v.messages = append(v.messages, msg)
	return msg
}

// BeginBotStream appends the single mutable trailing bot message for a
// new completion stream. If a stream is already active its message is
// finalized first, so exactly one streaming tail ever exists.
func (v *View) BeginBotStream() *model.Message {
	if tail := v.Last(); tail != nil && tail.IsStreaming {
		tail.FinalizeStream()
	}
	msg := model.NewBotMessage()
	v.messages = append(v.messages, msg)
	return msg
}

// AppendChunk concatenates a streamed chunk onto the trailing bot
// message. The element is mutated in place, never re-appended, which
// is what preserves its position in the view.
func (v *View) AppendChunk(text string) {
	tail := v.Last()
	if tail != nil && tail.IsStreaming {
		tail.AppendToken(text)
	}
}

// EndStream finalizes the trailing bot message and returns it for
// persistence. Returns nil if no stream is active.
func (v *View) EndStream() *model.Message {
	tail := v.Last()
	if tail == nil || !tail.IsStreaming {
		return nil
	}
	tail.FinalizeStream()
	return tail
}

// DropStreamingTail removes an in-flight bot placeholder, used when
// the completion fails before producing any content.
func (v *View) DropStreamingTail() {
	tail := v.Last()
	if tail != nil && tail.IsStreaming {
		v.messages = v.messages[:len(v.messages)-1]
	}
}

// MarkUnsynced flags the message with the given correlation id as
// having failed its write-back, keeping the divergence visible.
func (v *View) MarkUnsynced(correlationID string) {
	for i := len(v.messages) - 1; i >= 0; i-- {
		if v.messages[i].CorrelationID == correlationID {
			v.messages[i].Unsynced = true
			return
		}
	}
}

// =============================================================================
// REMOTE WRITE PATH
// =============================================================================

// ApplyRemote merges a confirmation record pushed from the room store
// feed. Resolution, in priority order:
//
//  1. Reverse-scan for an unacknowledged entry carrying the record's
//     correlation id; adopt the identity in place.
//  2. Reverse-scan for the most recent unacknowledged entry with equal
//     author and content; adopt in place. The reverse direction
//     matters: the placeholder for the write just issued is near the
//     tail, and must win over an older identical entry.
//  3. Append: the record originated with another participant or
//     another tab.
//
// A record whose identity is already present is dropped before any
// scan runs. Redelivery of an adopted echo must not touch a second
// identical placeholder.
func (v *View) ApplyRemote(rec roomstore.Record) Outcome {
	if rec.ID != 0 && v.indexOfID(rec.ID) >= 0 {
		return OutcomeDuplicate
	}

	if rec.CorrelationID != "" {
		if i := v.reverseScan(func(m *model.Message) bool {
			return !m.Acknowledged() && !m.IsStreaming && m.CorrelationID == rec.CorrelationID
		}); i >= 0 {
			v.adopt(i, rec)
			return OutcomeAdopted
		}
	}

	if i := v.reverseScan(func(m *model.Message) bool {
		return !m.Acknowledged() && !m.IsStreaming &&
			m.Author == rec.Author && m.Content == rec.Content
	}); i >= 0 {
		v.adopt(i, rec)
		return OutcomeAdopted
	}

	v.messages = append(v.messages, rec.Message())
	return OutcomeAppended
}

// adopt replaces the placeholder at i with the confirmed record,
// preserving its position. An unsynced flag is cleared: the record's
// arrival proves the write is durable after all.
func (v *View) adopt(i int, rec roomstore.Record) {
	msg := v.messages[i]
	msg.ID = rec.ID
	if rec.CorrelationID != "" {
		msg.CorrelationID = rec.CorrelationID
	}
	msg.Unsynced = false
	if !rec.CreatedAt.IsZero() {
		msg.Timestamp = rec.CreatedAt
	}
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

// reverseScan returns the index of the last entry matching the
// predicate, or -1.
func (v *View) reverseScan(match func(*model.Message) bool) int {
	for i := len(v.messages) - 1; i >= 0; i-- {
		if match(v.messages[i]) {
			return i
		}
	}
	return -1
}

// indexOfID returns the index of the entry carrying the given non-zero
// identity, or -1.
func (v *View) indexOfID(id int64) int {
	for i, m := range v.messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}
