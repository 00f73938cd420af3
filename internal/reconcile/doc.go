// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reconcile maintains the locally-authoritative ordered view
// of a room's messages.
//
// The view is written from two independent, unordered paths: local
// optimistic inserts (applied before the room store confirms them, to
// hide network latency) and confirmation pushes arriving from the
// store's feed, which include the client's own writes echoing back.
// ApplyRemote merges the two without ever showing a duplicate or
// losing a message: own echoes adopt their durable identity in place,
// foreign messages append, and redelivered identities are dropped.
//
// The view has no internal locking. It is owned by a single room
// session and all mutation is serialized on the UI event loop; feed
// callbacks reach it as Bubble Tea messages, never directly.
package reconcile
