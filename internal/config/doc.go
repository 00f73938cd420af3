// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management
// for roomchat.
//
// Supports TOML configuration with sensible defaults, environment
// variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - path given with -config
//   - ~/.roomchat/config.toml
//   - Built-in defaults
package config
