// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm provides the client for the hosted completion service.
package llm

import (
	"errors"

	"google.golang.org/genai"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the completion service client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches client errors by type.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNoAPIKey
	ErrTypeBlocked
	ErrTypeEmptyResponse
	ErrTypeUnavailable
)

// Sentinel errors for easy checking.
var (
	ErrNoAPIKey      = &ClientError{Type: ErrTypeNoAPIKey, Message: "completion service API key is required"}
	ErrBlocked       = &ClientError{Type: ErrTypeBlocked, Message: "request blocked by safety filter"}
	ErrEmptyResponse = &ClientError{Type: ErrTypeEmptyResponse, Message: "completion service returned no content"}
)

// IsBlocked returns true if the request was rejected by the service's
// safety filter.
func IsBlocked(err error) bool {
	return errors.Is(err, ErrBlocked)
}

// IsUnavailable returns true if the service could not be reached or
// answered with a server-side failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, &ClientError{Type: ErrTypeUnavailable})
}

// isRetriable reports whether an API error is worth retrying. Only
// transient server-side codes qualify; everything else fails the
// request immediately.
func isRetriable(err error) bool {
	var apiErr *genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == 500 || apiErr.Code == 503
}
