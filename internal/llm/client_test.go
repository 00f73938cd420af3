// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm provides the client for the hosted completion service.
package llm

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"

	"github.com/jeranaias/roomchat-tui/internal/model"
)

// =============================================================================
// CLIENT CONSTRUCTION TESTS
// =============================================================================

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(context.Background(), Config{}, nil)
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("err = %v, want ErrNoAPIKey", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Model == "" {
		t.Error("default model must be set")
	}
	if cfg.MaxRetries <= 0 {
		t.Error("default retries must be positive")
	}
	if cfg.RequestsPerMinute <= 0 {
		t.Error("default rate must be positive")
	}
}

// =============================================================================
// TURN CONVERSION TESTS
// =============================================================================

func TestTurnsFromMessages(t *testing.T) {
	messages := []*model.Message{
		{Author: model.AuthorUser, Content: "hi"},
		{Author: model.AuthorBot, Content: "hello"},
		{Author: model.AuthorBot, Content: ""}, // dropped
		{Author: model.AuthorUser, Content: "how are you"},
	}

	turns := TurnsFromMessages(messages)

	if len(turns) != 3 {
		t.Fatalf("len = %d, want 3", len(turns))
	}
	if turns[0].Author != model.AuthorUser || turns[0].Content != "hi" {
		t.Errorf("turns[0] = %+v", turns[0])
	}
	if turns[1].Author != model.AuthorBot {
		t.Errorf("turns[1].Author = %q, want bot", turns[1].Author)
	}
}

func TestTurnsFromMessages_StreamingContent(t *testing.T) {
	streaming := model.NewBotMessage()
	streaming.AppendToken("partial")

	turns := TurnsFromMessages([]*model.Message{streaming})

	if len(turns) != 1 || turns[0].Content != "partial" {
		t.Errorf("turns = %+v, want one turn with streamed content", turns)
	}
}

func TestToContents_RoleMapping(t *testing.T) {
	contents := toContents([]Turn{
		{Author: model.AuthorUser, Content: "q"},
		{Author: model.AuthorBot, Content: "a"},
	})

	if len(contents) != 2 {
		t.Fatalf("len = %d, want 2", len(contents))
	}
	if contents[0].Role != string(genai.RoleUser) {
		t.Errorf("contents[0].Role = %q, want user", contents[0].Role)
	}
	if contents[1].Role != string(genai.RoleModel) {
		t.Errorf("contents[1].Role = %q, want model", contents[1].Role)
	}
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestClientError_Is(t *testing.T) {
	wrapped := &ClientError{Type: ErrTypeBlocked, Message: "blocked", Cause: errors.New("x")}
	if !IsBlocked(wrapped) {
		t.Error("IsBlocked should match by type")
	}
	if IsBlocked(errors.New("other")) {
		t.Error("IsBlocked should not match a plain error")
	}
}

func TestIsRetriable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", &genai.APIError{Code: 500}, true},
		{"unavailable", &genai.APIError{Code: 503}, true},
		{"bad request", &genai.APIError{Code: 400}, false},
		{"rate limited", &genai.APIError{Code: 429}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRetriable(tc.err); got != tc.want {
				t.Errorf("isRetriable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

// =============================================================================
// RESPONSE EXTRACTION TESTS
// =============================================================================

func TestExtractText_Empty(t *testing.T) {
	_, err := extractText(&genai.GenerateContentResponse{})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestExtractText_Blocked(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{
			BlockReason: genai.BlockedReasonSafety,
		},
	}
	_, err := extractText(resp)
	if !errors.Is(err, ErrBlocked) {
		t.Errorf("err = %v, want ErrBlocked", err)
	}
}

func TestExtractText_OK(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "hello"}}}},
		},
	}
	got, err := extractText(resp)
	if err != nil {
		t.Fatalf("extractText failed: %v", err)
	}
	if got != "hello" {
		t.Errorf("text = %q, want %q", got, "hello")
	}
}
