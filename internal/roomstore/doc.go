// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package roomstore implements the remote room message log and its
// push channel on top of Redis.
//
// Each room owns three keys:
//
//	room:<id>:seq   INCR counter assigning durable message identities
//	room:<id>:log   append-only list of JSON-encoded records
//	room:<id>:feed  Pub/Sub channel carrying confirmation pushes
//
// Delivery on the feed is at-least-once and ordering across
// participants is not guaranteed; the reconciler on the client side is
// responsible for deduplication. Rooms expire: every insert refreshes
// the key TTL, and a room whose keys have lapsed reports
// ErrRoomNotFound on the next history fetch.
//
// Credentials (address, password) are supplied through configuration
// or environment at process start. They are never compiled in.
package roomstore
