// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm provides the client for the hosted completion service.
//
// A completion request carries the model identifier, the prior turns
// of the conversation, the configured system instruction, and the new
// user text. Responses come back either whole (Chat) or as a sequence
// of incremental chunks (ChatStream); the stream has no explicit end
// marker beyond the transport signaling completion.
//
// The API key is supplied through configuration or the environment at
// process start, never compiled into the binary.
package llm
