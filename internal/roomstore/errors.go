// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package roomstore implements the remote room message log and its
// push channel on top of Redis.
package roomstore

import "errors"

// =============================================================================
// ERROR TYPES
// =============================================================================

// StoreError represents an error from the room store.
type StoreError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *StoreError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is matches store errors by type so sentinel comparison works even
// for wrapped instances carrying a cause.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// ErrorType categorizes store errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotFound
	ErrTypeUnavailable
	ErrTypeCorrupt
)

// Sentinel errors for easy checking.
var (
	ErrRoomNotFound = &StoreError{Type: ErrTypeNotFound, Message: "room not found"}
	ErrUnavailable  = &StoreError{Type: ErrTypeUnavailable, Message: "room store unavailable"}
)

// IsNotFound returns true if the error indicates an absent or expired
// room.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRoomNotFound)
}

// IsUnavailable returns true if the error indicates the store could
// not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// unavailable wraps a transport-level failure.
func unavailable(msg string, cause error) *StoreError {
	return &StoreError{Type: ErrTypeUnavailable, Message: msg, Cause: cause}
}
