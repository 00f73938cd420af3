// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the message data structures for roomchat.
//
// A Message is the only domain entity: a line of room conversation
// authored by either the local user or the bot. Messages start life
// unacknowledged (ID zero) and adopt a durable identity once the room
// store confirms the write through the push feed. Bot messages are
// additionally mutable while a completion stream is appending to them,
// and become immutable once the stream finalizes.
package model
