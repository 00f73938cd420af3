// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the room chat view for the TUI.
//
// This file implements streaming optimization for smooth, flicker-free
// rendering during completion streaming. The StreamingBuffer batches
// tokens for rendering at a capped frame rate to balance
// responsiveness with CPU efficiency.
package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer batches tokens for efficient rendering. Tokens
// accumulate and are flushed when either the batch size threshold or
// the frame interval is reached. This prevents excessive rendering
// which causes flicker and high CPU usage.
//
// Thread-safety: streaming happens in a goroutine while rendering
// happens in the main Bubble Tea loop, so all operations take a mutex.
type StreamingBuffer struct {
	mu         sync.Mutex
	buffer     strings.Builder
	tokenCount int
	lastFlush  time.Time

	batchSize int           // Tokens per batch (default: 15)
	minFlush  time.Duration // Min time between flushes (default: ~33ms for 30fps)
}

const (
	defaultBatchSize = 15
	defaultMaxFPS    = 30
)

// NewStreamingBuffer creates a streaming buffer with default settings.
func NewStreamingBuffer() *StreamingBuffer {
	return &StreamingBuffer{
		batchSize: defaultBatchSize,
		minFlush:  time.Second / defaultMaxFPS,
		lastFlush: time.Now(),
	}
}

// Write adds a token to the buffer. Called from the streaming
// goroutine.
func (sb *StreamingBuffer) Write(token string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buffer.WriteString(token)
	sb.tokenCount++
}

// Flush returns accumulated content if either threshold is reached.
// Called from the main Bubble Tea loop.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	if sb.tokenCount < sb.batchSize && time.Since(sb.lastFlush) < sb.minFlush {
		return "", false
	}
	return sb.drainLocked(), true
}

// ForceFlush immediately flushes all buffered content regardless of
// thresholds. Used when a stream completes so no tokens are lost.
func (sb *StreamingBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	return sb.drainLocked(), true
}

// Reset clears the buffer without flushing. Used when a stream is
// abandoned.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buffer.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
}

// Pending returns the number of tokens waiting to be flushed.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.tokenCount
}

// drainLocked extracts and resets the buffer. Caller holds mu.
func (sb *StreamingBuffer) drainLocked() string {
	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
	return content
}

// =============================================================================
// STREAM TICK
// =============================================================================

// StreamTickCmd schedules the next buffer flush at the capped frame
// rate.
func StreamTickCmd() tea.Cmd {
	return tea.Tick(time.Second/defaultMaxFPS, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
