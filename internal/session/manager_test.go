// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"testing"
)

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestLifecycle_JoinToReady(t *testing.T) {
	m := NewManager()
	if m.State() != StateIdle {
		t.Fatalf("initial state = %v, want idle", m.State())
	}

	gen := m.BeginJoin("room-1")
	if m.State() != StateLoading {
		t.Errorf("state = %v, want loading", m.State())
	}
	if m.RoomID() != "room-1" {
		t.Errorf("RoomID = %q", m.RoomID())
	}

	if !m.Joined(gen, nil) {
		t.Fatal("Joined should succeed with current generation")
	}
	if m.State() != StateReady {
		t.Errorf("state = %v, want ready", m.State())
	}
	if !m.CanSubmit() {
		t.Error("ready session should accept input")
	}
}

func TestLifecycle_StreamingRoundTrip(t *testing.T) {
	m := NewManager()
	gen := m.BeginJoin("room-1")
	m.Joined(gen, nil)

	if !m.BeginStream(gen) {
		t.Fatal("BeginStream should succeed from ready")
	}
	if m.State() != StateStreaming {
		t.Errorf("state = %v, want streaming", m.State())
	}
	if m.CanSubmit() {
		t.Error("streaming session should not accept input")
	}

	if !m.EndStream(gen) {
		t.Fatal("EndStream should succeed from streaming")
	}
	if m.State() != StateReady {
		t.Errorf("state = %v, want ready", m.State())
	}
}

func TestFail_EvictsRoomAndBumpsGeneration(t *testing.T) {
	m := NewManager()
	gen := m.BeginJoin("room-1")
	m.Joined(gen, nil)

	cause := errors.New("room not found")
	m.Fail(cause)

	if m.State() != StateFailed {
		t.Errorf("state = %v, want failed", m.State())
	}
	if m.RoomID() != "" {
		t.Errorf("RoomID = %q, want evicted", m.RoomID())
	}
	if !errors.Is(m.Failure(), cause) {
		t.Errorf("Failure = %v", m.Failure())
	}
	if m.Current(gen) {
		t.Error("old generation must be stale after failure")
	}
}

// =============================================================================
// GENERATION TESTS
// =============================================================================

func TestStaleGeneration_Dropped(t *testing.T) {
	m := NewManager()
	old := m.BeginJoin("room-1")
	m.Joined(old, nil)

	// A second join abandons the first room.
	fresh := m.BeginJoin("room-2")

	if m.Current(old) {
		t.Error("first generation should be stale after rejoin")
	}
	if !m.Current(fresh) {
		t.Error("fresh generation should be current")
	}

	// Late callbacks from the abandoned room must not transition state.
	if m.Joined(old, nil) {
		t.Error("stale Joined must be rejected")
	}
	if m.BeginStream(old) {
		t.Error("stale BeginStream must be rejected")
	}
	if m.State() != StateLoading {
		t.Errorf("state = %v, want loading for the fresh join", m.State())
	}
}

func TestEndStream_WrongState(t *testing.T) {
	m := NewManager()
	gen := m.BeginJoin("room-1")
	m.Joined(gen, nil)

	if m.EndStream(gen) {
		t.Error("EndStream without an active stream must be rejected")
	}
}

func TestClose_ReturnsToIdle(t *testing.T) {
	m := NewManager()
	gen := m.BeginJoin("room-1")
	m.Joined(gen, nil)

	m.Close()

	if m.State() != StateIdle {
		t.Errorf("state = %v, want idle", m.State())
	}
	if m.Current(gen) {
		t.Error("generation must advance on close")
	}
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateLoading, "loading"},
		{StateReady, "ready"},
		{StateStreaming, "streaming"},
		{StateFailed, "failed"},
		{State(99), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("%d.String() = %q, want %q", tc.state, got, tc.want)
		}
	}
}
