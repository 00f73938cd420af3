// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks the lifecycle of a joined room.
//
// A session moves Idle -> Loading -> Ready, bounces between Ready and
// Streaming while a completion is in flight, and lands in Failed when
// the room becomes unusable. Failed is terminal: the room identity is
// evicted and a fresh session must be started.
//
// The manager also issues generation numbers. Every asynchronous
// callback captures the generation current at launch; results arriving
// with a stale generation belong to an abandoned room and are dropped.
package session
