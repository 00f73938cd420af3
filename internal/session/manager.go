// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"time"

	"github.com/jeranaias/roomchat-tui/internal/roomstore"
)

// =============================================================================
// SESSION STATE
// =============================================================================

// State is the lifecycle phase of a room session.
type State int

const (
	// StateIdle means no room is joined.
	StateIdle State = iota
	// StateLoading means history fetch and subscription are in flight.
	StateLoading
	// StateReady means the room is live and accepting input.
	StateReady
	// StateStreaming means a completion response is arriving.
	StateStreaming
	// StateFailed is terminal. The room identity has been evicted.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateStreaming:
		return "streaming"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager tracks the current room session. All methods are safe for
// concurrent use; stream and store callbacks consult it from their own
// goroutines.
type Manager struct {
	mu sync.Mutex

	state  State
	roomID string

	// generation increments on every join and every failure. Async
	// results stamped with an older generation are stale.
	generation uint64

	startTime    time.Time
	lastActivity time.Time

	failure error

	sub *roomstore.Subscription
}

// NewManager creates an idle session manager.
func NewManager() *Manager {
	now := time.Now()
	return &Manager{
		state:        StateIdle,
		startTime:    now,
		lastActivity: now,
	}
}

// =============================================================================
// LIFECYCLE TRANSITIONS
// =============================================================================

// BeginJoin moves the session into Loading for the given room and
// returns the generation that stamps this attempt. Any previous
// subscription is released first.
func (m *Manager) BeginJoin(roomID string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.releaseLocked()
	m.generation++
	m.state = StateLoading
	m.roomID = roomID
	m.failure = nil
	m.startTime = time.Now()
	m.lastActivity = m.startTime
	return m.generation
}

// Joined moves Loading -> Ready once history is seeded and the push
// subscription is live. The subscription is owned by the manager from
// here on. Returns false when gen is stale; the caller must close sub
// itself in that case.
func (m *Manager) Joined(gen uint64, sub *roomstore.Subscription) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation || m.state != StateLoading {
		return false
	}
	m.sub = sub
	m.state = StateReady
	m.lastActivity = time.Now()
	return true
}

// BeginStream moves Ready -> Streaming. Returns false when the session
// is not ready or the generation is stale.
func (m *Manager) BeginStream(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation || m.state != StateReady {
		return false
	}
	m.state = StateStreaming
	m.lastActivity = time.Now()
	return true
}

// EndStream moves Streaming -> Ready. A stale generation is ignored.
func (m *Manager) EndStream(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation || m.state != StateStreaming {
		return false
	}
	m.state = StateReady
	m.lastActivity = time.Now()
	return true
}

// Fail moves the session to Failed, evicts the room identity, and
// releases the subscription. The generation bumps so in-flight
// callbacks cannot resurrect the session.
func (m *Manager) Fail(cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.releaseLocked()
	m.generation++
	m.state = StateFailed
	m.roomID = ""
	m.failure = cause
}

// Close releases the subscription and returns the session to Idle.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.releaseLocked()
	m.generation++
	m.state = StateIdle
	m.roomID = ""
	m.failure = nil
}

// releaseLocked closes the active subscription. Caller holds mu.
func (m *Manager) releaseLocked() {
	if m.sub != nil {
		_ = m.sub.Close()
		m.sub = nil
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns the current lifecycle phase.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RoomID returns the joined room identity, empty when none.
func (m *Manager) RoomID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roomID
}

// Generation returns the current generation number.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// Current reports whether gen is still the live generation. Stream and
// persistence callbacks check this before touching the view.
func (m *Manager) Current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.generation
}

// Failure returns the error that moved the session to Failed, or nil.
func (m *Manager) Failure() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failure
}

// Duration returns how long the current session has been active.
func (m *Manager) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.startTime)
}

// RecordActivity updates the last activity timestamp. Called on user
// input.
func (m *Manager) RecordActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = time.Now()
}

// IdleTime returns how long since the last user activity.
func (m *Manager) IdleTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.lastActivity)
}

// CanSubmit reports whether the session accepts a new user message.
func (m *Manager) CanSubmit() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateReady
}
