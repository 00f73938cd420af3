// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/roomchat-tui/internal/model"
	"github.com/jeranaias/roomchat-tui/internal/roomstore"
	"github.com/jeranaias/roomchat-tui/internal/session"
	"github.com/jeranaias/roomchat-tui/internal/ui/styles"
)

func newTestModel(t *testing.T) (Model, *session.Manager) {
	t.Helper()
	sess := session.NewManager()
	m := New(styles.NewTheme(), sess, NewRunner(nil, nil, sess, nil), "test-model", Options{})
	resized, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return resized.(Model), sess
}

func newTestModelWithOptions(t *testing.T, opts Options) (Model, *session.Manager) {
	t.Helper()
	sess := session.NewManager()
	m := New(styles.NewTheme(), sess, NewRunner(nil, nil, sess, nil), "test-model", opts)
	resized, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return resized.(Model), sess
}

func joinRoom(t *testing.T, m Model, sess *session.Manager, records []roomstore.Record) Model {
	t.Helper()
	gen := sess.BeginJoin("room-1")
	updated, _ := m.Update(RoomJoinedMsg{Gen: gen, RoomID: "room-1", Records: records})
	return updated.(Model)
}

// =============================================================================
// ROOM LIFECYCLE TESTS
// =============================================================================

func TestRoomJoined_SeedsHistory(t *testing.T) {
	m, sess := newTestModel(t)

	records := []roomstore.Record{
		{ID: 1, Author: model.AuthorUser, Content: "hello", CreatedAt: time.Now()},
		{ID: 2, Author: model.AuthorBot, Content: "hi", CreatedAt: time.Now()},
	}
	m = joinRoom(t, m, sess, records)

	if sess.State() != session.StateReady {
		t.Errorf("state = %v, want ready", sess.State())
	}
	if m.view.Len() != 2 {
		t.Errorf("view.Len = %d, want 2", m.view.Len())
	}
}

func TestRoomJoined_NotFoundFailsSession(t *testing.T) {
	m, sess := newTestModel(t)

	gen := sess.BeginJoin("gone")
	updated, _ := m.Update(RoomJoinedMsg{Gen: gen, RoomID: "gone", Err: roomstore.ErrRoomNotFound})
	m = updated.(Model)

	if sess.State() != session.StateFailed {
		t.Errorf("state = %v, want failed", sess.State())
	}
	if sess.RoomID() != "" {
		t.Error("failed session must evict the room id")
	}
	if m.lastError == nil || m.lastError.Title != "Room not found" {
		t.Errorf("lastError = %+v", m.lastError)
	}
}

func TestRoomJoined_StaleGenerationIgnored(t *testing.T) {
	m, sess := newTestModel(t)

	old := sess.BeginJoin("room-1")
	sess.BeginJoin("room-2") // supersedes

	updated, _ := m.Update(RoomJoinedMsg{Gen: old, RoomID: "room-1",
		Records: []roomstore.Record{{ID: 1, Author: model.AuthorUser, Content: "stale"}}})
	m = updated.(Model)

	if m.view.Len() != 0 {
		t.Error("stale join must not seed the view")
	}
	if sess.State() != session.StateLoading {
		t.Errorf("state = %v, want loading for the live join", sess.State())
	}
}

func TestFeedClosed_FailsSession(t *testing.T) {
	m, sess := newTestModel(t)
	m = joinRoom(t, m, sess, nil)

	updated, _ := m.Update(FeedClosedMsg{Gen: sess.Generation()})
	m = updated.(Model)

	if sess.State() != session.StateFailed {
		t.Errorf("state = %v, want failed", sess.State())
	}
	if m.lastError == nil || m.lastError.Title != "Connection lost" {
		t.Errorf("lastError = %+v", m.lastError)
	}
}

func TestFeedClosed_StaleGenerationIgnored(t *testing.T) {
	m, sess := newTestModel(t)
	m = joinRoom(t, m, sess, nil)

	old := sess.Generation()
	gen := sess.BeginJoin("room-2")
	updated, _ := m.Update(RoomJoinedMsg{Gen: gen, RoomID: "room-2"})
	m = updated.(Model)

	// The superseded feed's teardown must not touch the live session.
	updated, _ = m.Update(FeedClosedMsg{Gen: old})
	m = updated.(Model)

	if sess.State() != session.StateReady {
		t.Errorf("state = %v, want ready", sess.State())
	}
}

// =============================================================================
// REMOTE INSERT TESTS
// =============================================================================

func TestRemoteInsert_AdoptsPlaceholder(t *testing.T) {
	m, sess := newTestModel(t)
	m = joinRoom(t, m, sess, nil)

	placeholder := m.view.SubmitUser("ping")
	gen := sess.Generation()

	echo := roomstore.Record{
		ID: 7, Author: model.AuthorUser, Content: "ping",
		CorrelationID: placeholder.CorrelationID, CreatedAt: time.Now(),
	}
	updated, _ := m.Update(RemoteInsertMsg{Gen: gen, Record: echo})
	m = updated.(Model)

	if m.view.Len() != 1 {
		t.Fatalf("view.Len = %d, want 1 (adoption, not append)", m.view.Len())
	}
	if got := m.view.Last().ID; got != 7 {
		t.Errorf("adopted ID = %d, want 7", got)
	}

	// Redelivery is a no-op.
	updated, _ = m.Update(RemoteInsertMsg{Gen: gen, Record: echo})
	m = updated.(Model)
	if m.view.Len() != 1 {
		t.Errorf("view.Len = %d after redelivery, want 1", m.view.Len())
	}
}

func TestRemoteInsert_ForeignMessageAppends(t *testing.T) {
	m, sess := newTestModel(t)
	m = joinRoom(t, m, sess, nil)

	rec := roomstore.Record{ID: 3, Author: model.AuthorUser, Content: "from another tab"}
	updated, _ := m.Update(RemoteInsertMsg{Gen: sess.Generation(), Record: rec})
	m = updated.(Model)

	if m.view.Len() != 1 {
		t.Fatalf("view.Len = %d, want 1", m.view.Len())
	}
}

func TestRemoteInsert_StaleGenerationDropped(t *testing.T) {
	m, sess := newTestModel(t)
	m = joinRoom(t, m, sess, nil)
	old := sess.Generation()
	sess.BeginJoin("room-2")

	updated, _ := m.Update(RemoteInsertMsg{Gen: old,
		Record: roomstore.Record{ID: 1, Author: model.AuthorUser, Content: "late"}})
	m = updated.(Model)

	if m.view.Len() != 0 {
		t.Error("stale push must not reach the view")
	}
}

// =============================================================================
// STREAMING TESTS
// =============================================================================

func TestStreaming_TokensCoalesceIntoOneMessage(t *testing.T) {
	m, sess := newTestModel(t)
	m = joinRoom(t, m, sess, nil)
	gen := sess.Generation()
	sess.BeginStream(gen)

	updated, _ := m.Update(StreamStartMsg{Gen: gen, StartTime: time.Now()})
	m = updated.(Model)

	for _, tok := range []string{"Hel", "lo"} {
		updated, _ = m.Update(StreamTokenMsg{Gen: gen, Token: tok})
		m = updated.(Model)
	}

	// Force the time threshold, then tick.
	m.streamingBuffer.mu.Lock()
	m.streamingBuffer.lastFlush = time.Now().Add(-time.Second)
	m.streamingBuffer.mu.Unlock()
	updated, _ = m.Update(StreamTickMsg{Time: time.Now()})
	m = updated.(Model)

	if m.view.Len() != 1 {
		t.Fatalf("view.Len = %d, want one streaming tail", m.view.Len())
	}
	if got := m.view.Last().DisplayContent(); got != "Hello" {
		t.Errorf("tail content = %q, want %q", got, "Hello")
	}
}

func TestStreamComplete_EmptyResponseDropsTail(t *testing.T) {
	m, sess := newTestModel(t)
	m = joinRoom(t, m, sess, nil)
	gen := sess.Generation()
	sess.BeginStream(gen)

	updated, _ := m.Update(StreamStartMsg{Gen: gen, StartTime: time.Now()})
	m = updated.(Model)
	updated, _ = m.Update(StreamCompleteMsg{Gen: gen})
	m = updated.(Model)

	if m.view.Len() != 0 {
		t.Errorf("view.Len = %d, want empty tail dropped", m.view.Len())
	}
	if sess.State() != session.StateReady {
		t.Errorf("state = %v, want ready", sess.State())
	}
}

func TestStreamError_ApologyReplacesPlaceholder(t *testing.T) {
	m, sess := newTestModel(t)
	m = joinRoom(t, m, sess, nil)
	gen := sess.Generation()
	sess.BeginStream(gen)

	updated, _ := m.Update(StreamStartMsg{Gen: gen, StartTime: time.Now()})
	m = updated.(Model)
	updated, _ = m.Update(StreamErrorMsg{Gen: gen, Err: errors.New("boom")})
	m = updated.(Model)

	tail := m.view.Last()
	if tail == nil {
		t.Fatal("apology message missing")
	}
	if tail.Content != apologyText {
		t.Errorf("tail content = %q, want apology", tail.Content)
	}
	if tail.IsStreaming {
		t.Error("apology must end the stream")
	}
	if sess.State() != session.StateReady {
		t.Errorf("state = %v, want ready for retry", sess.State())
	}
}

// =============================================================================
// PERSISTENCE RESULT TESTS
// =============================================================================

// The write-back result carries the durable record so acknowledgment
// does not depend on the feed echo arriving. A later echo for the same
// identity is then a duplicate, not a second adoption.
func TestPersistSuccess_AcknowledgesWithoutEcho(t *testing.T) {
	m, sess := newTestModel(t)
	m = joinRoom(t, m, sess, nil)
	placeholder := m.view.SubmitUser("ping")

	rec := roomstore.Record{
		ID:            7,
		Author:        model.AuthorUser,
		Content:       "ping",
		CorrelationID: placeholder.CorrelationID,
	}
	updated, _ := m.Update(PersistResultMsg{
		Gen:           sess.Generation(),
		CorrelationID: placeholder.CorrelationID,
		Record:        rec,
	})
	m = updated.(Model)

	if placeholder.ID != 7 {
		t.Errorf("placeholder.ID = %d, want 7", placeholder.ID)
	}

	// The echo still arrives eventually; it must not duplicate.
	updated, _ = m.Update(RemoteInsertMsg{Gen: sess.Generation(), Record: rec})
	m = updated.(Model)

	if m.view.Len() != 1 {
		t.Errorf("view.Len = %d, want 1", m.view.Len())
	}
}

func TestPersistFailure_MarksUnsynced(t *testing.T) {
	m, sess := newTestModel(t)
	m = joinRoom(t, m, sess, nil)
	placeholder := m.view.SubmitUser("ping")

	updated, _ := m.Update(PersistResultMsg{
		Gen:           sess.Generation(),
		CorrelationID: placeholder.CorrelationID,
		Err:           roomstore.ErrUnavailable,
	})
	m = updated.(Model)

	if !placeholder.Unsynced {
		t.Error("failed write must flag the message unsynced")
	}
	if sess.State() != session.StateReady {
		t.Errorf("state = %v, a transient failure must not end the session", sess.State())
	}
}

func TestPersistFailure_RoomGoneFailsSession(t *testing.T) {
	m, sess := newTestModel(t)
	m = joinRoom(t, m, sess, nil)
	placeholder := m.view.SubmitUser("ping")

	updated, _ := m.Update(PersistResultMsg{
		Gen:           sess.Generation(),
		CorrelationID: placeholder.CorrelationID,
		Err:           roomstore.ErrRoomNotFound,
	})
	m = updated.(Model)

	if sess.State() != session.StateFailed {
		t.Errorf("state = %v, want failed", sess.State())
	}
	if m.lastError == nil || !strings.Contains(m.lastError.Title, "Room expired") {
		t.Errorf("lastError = %+v", m.lastError)
	}
}

// =============================================================================
// VIEW RENDER TESTS
// =============================================================================

func TestView_ShowsUnsyncedMarker(t *testing.T) {
	m, sess := newTestModel(t)
	m = joinRoom(t, m, sess, nil)
	placeholder := m.view.SubmitUser("ping")
	placeholder.Unsynced = true
	m.updateViewport()

	if !strings.Contains(m.View(), "not synced") {
		t.Error("rendered view should carry the unsynced marker")
	}
}

func TestView_HandleReplacesUserLabel(t *testing.T) {
	m, sess := newTestModelWithOptions(t, Options{Handle: "ada"})
	m = joinRoom(t, m, sess, []roomstore.Record{
		{ID: 1, Author: model.AuthorUser, Content: "hello"},
		{ID: 2, Author: model.AuthorBot, Content: "hi"},
	})

	out := m.View()
	if !strings.Contains(out, "ada") {
		t.Error("configured handle should label user messages")
	}
	if !strings.Contains(out, model.AuthorBot.DisplayName()) {
		t.Error("bot label must be untouched by the handle")
	}
}

func TestView_TimestampToggle(t *testing.T) {
	rec := roomstore.Record{
		ID: 1, Author: model.AuthorUser, Content: "hello",
		CreatedAt: time.Date(2026, 8, 30, 14, 5, 0, 0, time.UTC),
	}

	m, sess := newTestModel(t)
	m = joinRoom(t, m, sess, []roomstore.Record{rec})
	if strings.Contains(m.View(), "14:05") {
		t.Error("timestamps rendered while disabled")
	}

	m, sess = newTestModelWithOptions(t, Options{ShowTimestamps: true})
	m = joinRoom(t, m, sess, []roomstore.Record{rec})
	if !strings.Contains(m.View(), "14:05") {
		t.Error("timestamps missing while enabled")
	}
}

func TestView_CompactModeTightensSpacing(t *testing.T) {
	records := []roomstore.Record{
		{ID: 1, Author: model.AuthorUser, Content: "a"},
		{ID: 2, Author: model.AuthorBot, Content: "b"},
	}

	regular, sess := newTestModel(t)
	regular = joinRoom(t, regular, sess, records)
	compact, csess := newTestModelWithOptions(t, Options{Compact: true})
	compact = joinRoom(t, compact, csess, records)

	got := strings.Count(compact.renderMessages(), "\n")
	want := strings.Count(regular.renderMessages(), "\n") - len(records)
	if got != want {
		t.Errorf("compact list has %d newlines, want %d", got, want)
	}
}

func TestView_ErrorOverlay(t *testing.T) {
	m, _ := newTestModel(t)
	updated, _ := m.Update(ErrorMsg{Title: "Room not found", Message: "nope"})
	m = updated.(Model)

	if !strings.Contains(m.View(), "Room not found") {
		t.Error("error overlay should show the title")
	}

	updated, _ = m.Update(ErrorDismissMsg{})
	m = updated.(Model)
	if strings.Contains(m.View(), "Room not found") {
		t.Error("dismissed error should disappear")
	}
}
