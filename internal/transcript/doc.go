// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript exports a room's message log to local files.
//
// The room store is the durable record; transcripts are read-only
// snapshots for sharing or archiving, written under
// ~/.roomchat/transcripts/ in Markdown or JSON.
package transcript
