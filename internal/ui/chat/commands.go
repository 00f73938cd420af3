// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the room chat view for the TUI.
//
// This file implements the Runner, which executes every blocking
// operation (room joins, persistence writes, completion streams) in
// goroutines and feeds results back into the Bubble Tea program as
// messages.
package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/roomchat-tui/internal/llm"
	"github.com/jeranaias/roomchat-tui/internal/model"
	"github.com/jeranaias/roomchat-tui/internal/roomstore"
	"github.com/jeranaias/roomchat-tui/internal/session"
	"github.com/jeranaias/roomchat-tui/internal/transcript"
)

// =============================================================================
// RUNNER
// =============================================================================

// Runner bridges the synchronous Bubble Tea loop and the asynchronous
// backends. The program reference is set after construction because
// the tea.Program itself needs the model first.
type Runner struct {
	mu      sync.Mutex
	program *tea.Program

	store   *roomstore.Store
	client  *llm.Client
	session *session.Manager
	log     *slog.Logger
}

// NewRunner creates a runner over the given backends.
func NewRunner(store *roomstore.Store, client *llm.Client, sess *session.Manager, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		store:   store,
		client:  client,
		session: sess,
		log:     log.With("component", "runner"),
	}
}

// SetProgram stores the program reference for async sends.
func (r *Runner) SetProgram(p *tea.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.program = p
}

// send delivers a message into the event loop. Safe to call from any
// goroutine; a nil program (tests) drops the message.
func (r *Runner) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// =============================================================================
// ROOM OPERATIONS
// =============================================================================

// CreateRoom allocates a fresh room and reports the shareable
// identifier, then joins it.
func (r *Runner) CreateRoom(ctx context.Context) {
	roomID, err := r.store.Create(ctx)
	r.send(RoomCreatedMsg{RoomID: roomID, Err: err})
	if err != nil {
		return
	}
	r.JoinRoom(ctx, roomID)
}

// JoinRoom fetches the room history and attaches the push
// subscription, reporting the combined result. The subscription
// handler stamps every push with the join's generation so a room
// switch orphans the old feed cleanly.
func (r *Runner) JoinRoom(ctx context.Context, roomID string) {
	gen := r.session.BeginJoin(roomID)

	records, err := r.store.FetchHistory(ctx, roomID)
	if err != nil {
		r.log.ErrorContext(ctx, "history fetch failed", "room", roomID, "error", err)
		r.send(RoomJoinedMsg{Gen: gen, RoomID: roomID, Err: err})
		return
	}

	sub, err := r.store.Subscribe(ctx, roomID, func(rec roomstore.Record) {
		r.send(RemoteInsertMsg{Gen: gen, Record: rec})
	})
	if err != nil {
		r.log.ErrorContext(ctx, "subscribe failed", "room", roomID, "error", err)
		r.send(RoomJoinedMsg{Gen: gen, RoomID: roomID, Err: err})
		return
	}

	// A feed that dies while the session holds it would otherwise lose
	// every subsequent insert without a trace. Released distinguishes a
	// deliberate Close (room switch, quit) from a dropped connection.
	go func() {
		<-sub.Done()
		if sub.Released() {
			return
		}
		r.log.Error("push feed terminated", "room", roomID)
		r.send(FeedClosedMsg{Gen: gen})
	}()

	r.send(RoomJoinedMsg{Gen: gen, RoomID: roomID, Records: records, Sub: sub})
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Persist writes a message to the room store. The durable identity
// reaches the view through the confirmation echo on the feed; this
// result only carries failures (and the record, for logging).
func (r *Runner) Persist(ctx context.Context, gen uint64, roomID string, msg *model.Message) {
	rec, err := r.store.Insert(ctx, roomID, msg.Author, msg.Content, msg.CorrelationID)
	if err != nil {
		r.log.ErrorContext(ctx, "persist failed", "room", roomID, "author", msg.Author, "error", err)
	}
	r.send(PersistResultMsg{Gen: gen, CorrelationID: msg.CorrelationID, Record: rec, Err: err})
}

// =============================================================================
// COMPLETION STREAMING
// =============================================================================

// RunStream executes a streaming completion over the turn history and
// feeds tokens into the program.
func (r *Runner) RunStream(ctx context.Context, gen uint64, turns []llm.Turn) {
	r.send(StreamStartMsg{Gen: gen, StartTime: time.Now()})

	err := r.client.ChatStream(ctx, turns, func(chunk llm.StreamChunk) {
		if chunk.Done {
			r.send(StreamCompleteMsg{Gen: gen})
			return
		}
		if chunk.Content != "" {
			r.send(StreamTokenMsg{Gen: gen, Token: chunk.Content})
		}
	})
	if err != nil {
		r.log.Error("completion stream failed", "error", err)
		r.send(StreamErrorMsg{Gen: gen, Err: err})
	}
}

// =============================================================================
// EXPORT
// =============================================================================

// Export writes a transcript snapshot to disk.
func (r *Runner) Export(t *transcript.Transcript) {
	exporter, err := transcript.NewExporter()
	if err != nil {
		r.send(ExportCompleteMsg{Err: err})
		return
	}
	path, err := exporter.SaveMarkdown(t)
	r.send(ExportCompleteMsg{Path: path, Err: err})
}
