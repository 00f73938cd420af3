// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the room chat view for the TUI.
//
// The Bubble Tea event loop is the single owner of the message view.
// Everything asynchronous (history fetch, store pushes, completion
// streams, persistence results) arrives as a tea.Msg carrying the
// session generation it was launched under; stale generations are
// dropped before they can touch the view.
package chat
