// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package roomstore implements the remote room message log and its
// push channel on top of Redis.
package roomstore

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/jeranaias/roomchat-tui/internal/model"
)

// =============================================================================
// STORE CONFIGURATION
// =============================================================================

// Config holds connection settings for the room store.
type Config struct {
	// Addr is the Redis host:port.
	Addr string

	// Password authenticates against Redis. Empty for unauthenticated
	// instances.
	Password string

	// DB selects the Redis logical database.
	DB int

	// RoomTTL is how long a room survives without activity. Every
	// insert refreshes it. Default: 24h.
	RoomTTL time.Duration

	// DialTimeout bounds connection establishment. Default: 5s.
	DialTimeout time.Duration
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		Addr:        "127.0.0.1:6379",
		RoomTTL:     24 * time.Hour,
		DialTimeout: 5 * time.Second,
	}
}

// =============================================================================
// STORE
// =============================================================================

// Store provides the durable append-only message log and the per-room
// push channel.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// New creates a room store from the given configuration.
func New(cfg Config, log *slog.Logger) *Store {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if cfg.RoomTTL == 0 {
		cfg.RoomTTL = 24 * time.Hour
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	return &Store{
		client: client,
		ttl:    cfg.RoomTTL,
		log:    log.With("component", "roomstore"),
	}
}

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("cannot reach room store", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// =============================================================================
// ROOM OPERATIONS
// =============================================================================

// Create allocates a new room and returns its shareable identifier.
func (s *Store) Create(ctx context.Context) (string, error) {
	room := newRoomID()

	if err := s.client.Set(ctx, seqKey(room), 0, s.ttl).Err(); err != nil {
		return "", unavailable("failed to create room", err)
	}

	s.log.InfoContext(ctx, "room created", "room", room, "ttl", s.ttl)
	return room, nil
}

// FetchHistory returns the full ordered message log of a room.
// Returns ErrRoomNotFound when the room is absent or expired.
func (s *Store) FetchHistory(ctx context.Context, room string) ([]Record, error) {
	exists, err := s.client.Exists(ctx, seqKey(room)).Result()
	if err != nil {
		return nil, unavailable("failed to check room", err)
	}
	if exists == 0 {
		return nil, ErrRoomNotFound
	}

	lines, err := s.client.LRange(ctx, logKey(room), 0, -1).Result()
	if err != nil {
		return nil, unavailable("failed to fetch history", err)
	}

	records := make([]Record, 0, len(lines))
	for _, line := range lines {
		rec, err := decodeRecord([]byte(line))
		if err != nil {
			// A corrupt entry must not make the whole room
			// unenterable.
			s.log.WarnContext(ctx, "skipping corrupt log entry", "room", room, "error", err)
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

// Insert durably appends a message to the room log, assigns its
// identity, and publishes the confirmation to every subscriber
// (including the caller's own subscription).
func (s *Store) Insert(ctx context.Context, room string, author model.Author, content, correlationID string) (Record, error) {
	exists, err := s.client.Exists(ctx, seqKey(room)).Result()
	if err != nil {
		return Record{}, unavailable("failed to check room", err)
	}
	if exists == 0 {
		return Record{}, ErrRoomNotFound
	}

	id, err := s.client.Incr(ctx, seqKey(room)).Result()
	if err != nil {
		return Record{}, unavailable("failed to assign identity", err)
	}

	rec := Record{
		ID:            id,
		Author:        author,
		Content:       content,
		CorrelationID: correlationID,
		CreatedAt:     time.Now().UTC(),
	}

	data, err := encodeRecord(rec)
	if err != nil {
		return Record{}, &StoreError{Type: ErrTypeCorrupt, Message: "failed to encode record", Cause: err}
	}

	if err := s.client.RPush(ctx, logKey(room), data).Err(); err != nil {
		return Record{}, unavailable("failed to append record", err)
	}

	// Activity refreshes the room lifetime.
	s.client.Expire(ctx, seqKey(room), s.ttl)
	s.client.Expire(ctx, logKey(room), s.ttl)

	if err := s.client.Publish(ctx, feedKey(room), data).Err(); err != nil {
		// The record is durable; only the push failed. Subscribers
		// will see it on their next history fetch.
		s.log.WarnContext(ctx, "publish failed after durable insert", "room", room, "id", id, "error", err)
	}

	return rec, nil
}

// =============================================================================
// SUBSCRIPTION
// =============================================================================

// Subscription is the exclusively-owned handle to a room's push
// channel. Close releases it; a session that leaks its subscription
// keeps receiving pushes for a defunct view.
type Subscription struct {
	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	released bool
}

// Close releases the push channel.
func (sub *Subscription) Close() error {
	sub.mu.Lock()
	sub.released = true
	sub.mu.Unlock()
	sub.cancel()
	return sub.pubsub.Close()
}

// Done is closed once the feed stops delivering, whether through Close
// or because the connection to the store dropped.
func (sub *Subscription) Done() <-chan struct{} {
	return sub.done
}

// Released reports whether the subscription was shut down deliberately.
// A Done without Released means the feed died under the session.
func (sub *Subscription) Released() bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.released
}

// Subscribe attaches a handler to the room's push feed. The handler is
// invoked from a dedicated goroutine for every confirmation record the
// feed delivers; delivery is at-least-once and the handler must
// tolerate duplicates.
func (s *Store) Subscribe(ctx context.Context, room string, handler func(Record)) (*Subscription, error) {
	pubsub := s.client.Subscribe(ctx, feedKey(room))

	// Force the subscription onto the wire so a dead store surfaces
	// here rather than as silent message loss.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, unavailable("failed to subscribe", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{pubsub: pubsub, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		ch := pubsub.Channel()
		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}
				rec, err := decodeRecord([]byte(m.Payload))
				if err != nil {
					s.log.Warn("skipping corrupt push", "room", room, "error", err)
					continue
				}
				handler(rec)
			case <-subCtx.Done():
				return
			}
		}
	}()

	return sub, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// newRoomID creates a short shareable room identifier.
func newRoomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func seqKey(room string) string { return "room:" + room + ":seq" }
func logKey(room string) string { return "room:" + room + ":log" }
func feedKey(room string) string { return "room:" + room + ":feed" }
