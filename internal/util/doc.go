// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for roomchat.
//
// It contains:
//   - Atomic file writes (temp file + fsync + rename) used by the
//     transcript store.
//   - Display-width aware string truncation and padding used by the
//     TUI, built on go-runewidth so CJK and emoji render correctly.
package util
