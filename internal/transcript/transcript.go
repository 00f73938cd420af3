// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/roomchat-tui/internal/model"
	"github.com/jeranaias/roomchat-tui/internal/util"
)

// =============================================================================
// TRANSCRIPT TYPE
// =============================================================================

// Transcript is a point-in-time snapshot of a room's conversation.
type Transcript struct {
	RoomID     string    `json:"room_id"`
	ExportedAt time.Time `json:"exported_at"`
	Model      string    `json:"model,omitempty"`

	Messages []Entry `json:"messages"`
}

// Entry is one message in an exported transcript. Unacknowledged
// placeholders are skipped at snapshot time, so every entry carries a
// durable identity.
type Entry struct {
	ID        int64        `json:"id"`
	Author    model.Author `json:"author"`
	Content   string       `json:"content"`
	Timestamp time.Time    `json:"timestamp"`
}

// Snapshot builds a transcript from the current view. Streaming and
// unacknowledged messages are excluded; they have no durable identity
// yet.
func Snapshot(roomID, modelName string, messages []*model.Message) *Transcript {
	t := &Transcript{
		RoomID:     roomID,
		ExportedAt: time.Now(),
		Model:      modelName,
		Messages:   make([]Entry, 0, len(messages)),
	}
	for _, m := range messages {
		if !m.Acknowledged() || m.IsStreaming {
			continue
		}
		t.Messages = append(t.Messages, Entry{
			ID:        m.ID,
			Author:    m.Author,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return t
}

// MessageCount returns the number of exported messages.
func (t *Transcript) MessageCount() int {
	return len(t.Messages)
}

// =============================================================================
// RENDERING
// =============================================================================

// Markdown renders the transcript as a Markdown document with room
// metadata, timestamps, and author labels.
func (t *Transcript) Markdown() string {
	var sb strings.Builder
	sb.WriteString("# Room " + t.RoomID + "\n\n")
	sb.WriteString("Exported: " + t.ExportedAt.Format(time.RFC3339) + "\n\n")
	if t.Model != "" {
		sb.WriteString("Model: " + t.Model + "\n\n")
	}
	sb.WriteString("---\n\n")

	for _, e := range t.Messages {
		label := "**" + e.Author.DisplayName() + "**"
		sb.WriteString(label + " (" + e.Timestamp.Format("15:04") + "):\n\n")
		sb.WriteString(e.Content)
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

// JSON renders the transcript as pretty-printed JSON.
func (t *Transcript) JSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// =============================================================================
// EXPORTER
// =============================================================================

// Exporter writes transcripts to disk.
type Exporter struct {
	// BaseDir is the directory for exported transcripts.
	// Default: ~/.roomchat/transcripts/
	BaseDir string
}

// NewExporter creates an exporter under the default directory.
func NewExporter() (*Exporter, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewExporterWithDir(filepath.Join(homeDir, ".roomchat", "transcripts"))
}

// NewExporterWithDir creates an exporter with a custom directory.
func NewExporterWithDir(baseDir string) (*Exporter, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &Exporter{BaseDir: baseDir}, nil
}

// SaveMarkdown writes the transcript as Markdown and returns the path.
func (e *Exporter) SaveMarkdown(t *Transcript) (string, error) {
	path := e.filePath(t, "md")
	if err := util.AtomicWriteFile(path, []byte(t.Markdown()), 0644); err != nil {
		return "", fmt.Errorf("failed to write transcript: %w", err)
	}
	return path, nil
}

// SaveJSON writes the transcript as JSON and returns the path.
func (e *Exporter) SaveJSON(t *Transcript) (string, error) {
	data, err := t.JSON()
	if err != nil {
		return "", fmt.Errorf("failed to encode transcript: %w", err)
	}
	path := e.filePath(t, "json")
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write transcript: %w", err)
	}
	return path, nil
}

// filePath builds a collision-free name from room and export time.
func (e *Exporter) filePath(t *Transcript, ext string) string {
	name := fmt.Sprintf("%s-%s.%s", t.RoomID, t.ExportedAt.Format("20060102-150405"), ext)
	return filepath.Join(e.BaseDir, name)
}
