// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the message data structures for roomchat.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// AUTHOR TYPE
// =============================================================================

// Author identifies who wrote a message.
type Author string

const (
	AuthorUser Author = "user"
	AuthorBot  Author = "bot"
)

// String returns the string representation of the author.
func (a Author) String() string {
	return string(a)
}

// DisplayName returns a human-readable name for the author.
func (a Author) DisplayName() string {
	switch a {
	case AuthorUser:
		return "You"
	case AuthorBot:
		return "Bot"
	default:
		return string(a)
	}
}

// Valid reports whether the author is a known value.
func (a Author) Valid() bool {
	return a == AuthorUser || a == AuthorBot
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single line of room conversation.
//
// ID is the durable identity assigned by the room store; zero means
// the message has not been acknowledged yet (an optimistic insert or
// an in-flight bot stream). CorrelationID is generated client-side at
// submission time and carried through persistence so the confirmation
// echo can be matched even when identical texts are in flight.
type Message struct {
	ID            int64     `json:"id"`
	Author        Author    `json:"author"`
	Content       string    `json:"content"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`

	// Unsynced marks a message whose write-back to the room store
	// failed. The local view keeps it; the indicator makes the
	// divergence visible instead of swallowing the error.
	Unsynced bool `json:"-"`

	// Streaming state (bot messages only, never persisted).
	// strings.Builder avoids quadratic allocations during streaming.
	IsStreaming   bool            `json:"-"`
	streamContent strings.Builder `json:"-"`
}

// NewUserMessage creates an optimistic user message with a fresh
// correlation id and no durable identity.
func NewUserMessage(content string) *Message {
	return &Message{
		Author:        AuthorUser,
		Content:       content,
		CorrelationID: uuid.NewString(),
		Timestamp:     time.Now(),
	}
}

// NewBotMessage creates the mutable trailing bot message for an
// active completion stream.
func NewBotMessage() *Message {
	return &Message{
		Author:        AuthorBot,
		CorrelationID: uuid.NewString(),
		Timestamp:     time.Now(),
		IsStreaming:   true,
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// Acknowledged reports whether the room store has assigned an identity.
func (m *Message) Acknowledged() bool {
	return m.ID != 0
}

// AppendToken appends a streamed chunk. No-op once the stream has been
// finalized: finalized content is immutable.
func (m *Message) AppendToken(token string) {
	if m.IsStreaming {
		m.streamContent.WriteString(token)
	}
}

// FinalizeStream merges the streamed content into Content and marks
// the message immutable.
func (m *Message) FinalizeStream() {
	if !m.IsStreaming {
		return
	}
	m.Content = m.streamContent.String()
	m.streamContent.Reset()
	m.IsStreaming = false
}

// SetContent replaces the message content outright, ending any active
// stream. Used to swap a failed bot placeholder for the apology text.
func (m *Message) SetContent(content string) {
	m.streamContent.Reset()
	m.IsStreaming = false
	m.Content = content
}

// DisplayContent returns the content to render: the live stream
// accumulator while streaming, the final content otherwise.
func (m *Message) DisplayContent() string {
	if m.IsStreaming {
		return m.streamContent.String()
	}
	return m.Content
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamContent.Len() == 0
}

// Preview returns a truncated single-line preview of the content.
// Rune-based truncation keeps UTF-8 intact.
func (m *Message) Preview(maxLen int) string {
	content := m.DisplayContent()
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		content = content[:i]
	}
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
