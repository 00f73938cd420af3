// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm provides the client for the hosted completion service.
package llm

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/jeranaias/roomchat-tui/internal/model"
)

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is one prior exchange in the conversation, as the completion
// service expects it.
type Turn struct {
	Author  model.Author
	Content string
}

// TurnsFromMessages builds the turn history from the current view,
// skipping empty entries (an aborted stream leaves none behind, but a
// defunct placeholder should never reach the service).
func TurnsFromMessages(messages []*model.Message) []Turn {
	turns := make([]Turn, 0, len(messages))
	for _, m := range messages {
		content := m.DisplayContent()
		if content == "" {
			continue
		}
		turns = append(turns, Turn{Author: m.Author, Content: content})
	}
	return turns
}

// =============================================================================
// STREAM CHUNK
// =============================================================================

// StreamChunk is one increment of a streaming completion.
type StreamChunk struct {
	Content string
	Done    bool
}

// StreamCallback receives chunks as they arrive. It is invoked from
// the streaming goroutine; implementations must hand the data off
// (e.g. into the UI event loop) rather than mutate shared state.
type StreamCallback func(chunk StreamChunk)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Config holds configuration for the completion service client.
type Config struct {
	// APIKey authenticates against the service. Required.
	APIKey string

	// Model is the model identifier (default: "gemini-2.0-flash").
	Model string

	// SystemInstruction is prepended to every request.
	SystemInstruction string

	// Temperature controls sampling (default: 0.7).
	Temperature float32

	// MaxRetries for transient 5xx failures (default: 2).
	MaxRetries int

	// RetryDelay between retries (default: 1s).
	RetryDelay time.Duration

	// RequestsPerMinute caps the client-side request rate
	// (default: 30; 0 keeps the default).
	RequestsPerMinute int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		Model:             "gemini-2.0-flash",
		Temperature:       0.7,
		MaxRetries:        2,
		RetryDelay:        time.Second,
		RequestsPerMinute: 30,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the hosted completion service. It is safe for
// concurrent use, though roomchat only issues one request at a time.
type Client struct {
	genaiClient *genai.Client
	cfg         Config
	content     *genai.GenerateContentConfig
	limiter     *rate.Limiter
	log         *slog.Logger
}

// NewClient creates a completion service client. Fails fast when no
// API key is configured, so a misconfigured binary never enters a room.
func NewClient(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 30
	}
	if log == nil {
		log = slog.Default()
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnavailable, Message: "failed to create completion client", Cause: err}
	}

	temp := cfg.Temperature
	content := &genai.GenerateContentConfig{Temperature: &temp}
	if cfg.SystemInstruction != "" {
		content.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: cfg.SystemInstruction}},
		}
	}

	return &Client{
		genaiClient: gi,
		cfg:         cfg,
		content:     content,
		limiter:     rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1),
		log:         log.With("component", "llm"),
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

// =============================================================================
// COMPLETION
// =============================================================================

// Chat sends the turn history and returns the full response text.
func (c *Client) Chat(ctx context.Context, turns []Turn) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &ClientError{Type: ErrTypeUnavailable, Message: "rate limiter interrupted", Cause: err}
	}

	contents := toContents(turns)

	var resp *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		resp, err = c.genaiClient.Models.GenerateContent(ctx, c.cfg.Model, contents, c.content)
		if err == nil {
			break
		}
		if !isRetriable(err) || attempt == c.cfg.MaxRetries {
			c.log.ErrorContext(ctx, "completion request failed", "attempt", attempt+1, "error", err)
			return "", &ClientError{Type: ErrTypeUnavailable, Message: "completion request failed", Cause: err}
		}
		c.log.WarnContext(ctx, "retrying completion request", "attempt", attempt+1, "delay", c.cfg.RetryDelay)
		time.Sleep(c.cfg.RetryDelay)
	}

	return extractText(resp)
}

// ChatStream sends the turn history and delivers the response
// incrementally through the callback. The final chunk carries Done.
func (c *Client) ChatStream(ctx context.Context, turns []Turn, callback StreamCallback) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &ClientError{Type: ErrTypeUnavailable, Message: "rate limiter interrupted", Cause: err}
	}

	contents := toContents(turns)

	for resp, err := range c.genaiClient.Models.GenerateContentStream(ctx, c.cfg.Model, contents, c.content) {
		if err != nil {
			c.log.ErrorContext(ctx, "completion stream failed", "error", err)
			return &ClientError{Type: ErrTypeUnavailable, Message: "completion stream failed", Cause: err}
		}
		if blocked(resp) {
			return ErrBlocked
		}
		if text := resp.Text(); text != "" {
			callback(StreamChunk{Content: text})
		}
	}

	callback(StreamChunk{Done: true})
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// toContents converts turns into the service's content format. The
// bot's own replies go back as model-role turns.
func toContents(turns []Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := genai.Role(genai.RoleUser)
		if t.Author == model.AuthorBot {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}
	return contents
}

// blocked reports whether the service refused the prompt.
func blocked(resp *genai.GenerateContentResponse) bool {
	return resp.PromptFeedback != nil &&
		resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified
}

// extractText pulls the response text, mapping degenerate responses to
// typed errors.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if blocked(resp) {
		return "", ErrBlocked
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
