// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package roomstore implements the remote room message log and its
// push channel on top of Redis.
package roomstore

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/roomchat-tui/internal/model"
)

// =============================================================================
// RECORD TYPE
// =============================================================================

// Record is a durably stored room message as it travels over the wire:
// appended to the room log on insert and echoed to every subscriber
// through the push feed.
type Record struct {
	// ID is the durable identity assigned by the store (INCR). Always
	// non-zero for a persisted record.
	ID int64 `json:"id"`

	Author  model.Author `json:"author"`
	Content string       `json:"content"`

	// CorrelationID is the client-generated id carried through from
	// the optimistic insert, so the originating client can match its
	// own echo without relying on content equality.
	CorrelationID string `json:"correlation_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Message converts the record into a view message carrying the
// durable identity.
func (r Record) Message() *model.Message {
	return &model.Message{
		ID:            r.ID,
		Author:        r.Author,
		Content:       r.Content,
		CorrelationID: r.CorrelationID,
		Timestamp:     r.CreatedAt,
	}
}

// encodeRecord marshals a record for the log and the feed.
func encodeRecord(rec Record) ([]byte, error) {
	return json.Marshal(rec)
}

// decodeRecord unmarshals a record from its wire form.
func decodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, &StoreError{
			Type:    ErrTypeCorrupt,
			Message: "failed to decode record",
			Cause:   err,
		}
	}
	return rec, nil
}
