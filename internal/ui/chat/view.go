// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the room chat view for the TUI.
//
// This file contains all rendering logic for the chat interface:
// header, message list, input area, status bar, help overlay, and
// error box. Bot messages render through glamour as Markdown; user
// messages render verbatim.
package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/roomchat-tui/internal/model"
	"github.com/jeranaias/roomchat-tui/internal/util"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// renderChat renders the complete chat view.
// Layout: header (1 line) + messages (viewport) + input (3 lines) +
// status (1 line). Total height must equal m.height exactly.
func (m Model) renderChat() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelpOverlay()
	}
	if m.lastError != nil {
		return m.renderErrorOverlay()
	}

	header := m.renderHeader()
	input := m.renderInput()
	status := m.renderStatusBar()

	headerHeight := lipgloss.Height(header)
	inputHeight := lipgloss.Height(input)
	statusHeight := lipgloss.Height(status)

	availableHeight := m.height - headerHeight - inputHeight - statusHeight
	if availableHeight < 1 {
		availableHeight = 1
	}

	messages := m.viewport.View()
	if lipgloss.Height(messages) != availableHeight {
		messages = lipgloss.NewStyle().
			Height(availableHeight).
			MaxHeight(availableHeight).
			Width(m.width).
			Render(messages)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		messages,
		input,
		status,
	)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("roomchat")

	var room string
	if id := m.session.RoomID(); id != "" {
		room = m.theme.ShortcutDesc.Render(" room ") + m.theme.RoomID.Render(id)
	}

	line := title + room
	return m.theme.Header.Width(m.width).Render(util.TruncateWidth(line, m.width))
}

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

// updateViewport re-renders the message list into the viewport.
func (m *Model) updateViewport() {
	m.viewport.SetContent(m.renderMessages())
}

// renderMessages assembles the full message list. Compact mode drops
// the blank line between messages.
func (m *Model) renderMessages() string {
	var sb strings.Builder
	for _, msg := range m.view.Messages() {
		sb.WriteString(m.renderMessage(msg))
		if !m.opts.Compact {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// renderMessage renders one message with its author label, optional
// timestamp, and sync state.
func (m *Model) renderMessage(msg *model.Message) string {
	var label string
	switch msg.Author {
	case model.AuthorUser:
		name := msg.Author.DisplayName()
		if m.opts.Handle != "" {
			name = m.opts.Handle
		}
		label = m.theme.AuthorUser.Render(name)
	default:
		label = m.theme.AuthorBot.Render(msg.Author.DisplayName())
	}

	header := label
	if m.opts.ShowTimestamps {
		header += " " + m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))
	}
	if msg.Unsynced {
		header += " " + m.theme.UnsyncedMark.Render("! not synced")
	}
	if msg.IsStreaming {
		header += " " + m.theme.StreamingMark.Render("...")
	}

	return header + "\n" + m.renderBody(msg) + "\n"
}

// renderBody renders message content. Bot replies are Markdown; the
// raw text is the fallback when rendering fails or no renderer is
// available yet.
func (m *Model) renderBody(msg *model.Message) string {
	content := msg.DisplayContent()
	if content == "" {
		return m.theme.StreamingMark.Render("thinking...")
	}

	if msg.Author == model.AuthorBot && !msg.IsStreaming && m.renderer != nil {
		if rendered, err := m.renderer.Render(content); err == nil {
			return strings.TrimRight(rendered, "\n")
		}
	}

	width := m.width - 4
	if width < 10 {
		width = 10
	}
	return lipgloss.NewStyle().Width(width).Render(content)
}

// rebuildRenderer recreates the glamour renderer for the current
// width.
func (m *Model) rebuildRenderer() {
	wrap := m.width - 6
	if wrap < 20 {
		wrap = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		m.renderer = nil
		return
	}
	m.renderer = renderer
}

// =============================================================================
// INPUT AREA
// =============================================================================

func (m Model) renderInput() string {
	var inner string
	if m.session.CanSubmit() {
		inner = m.input.View()
	} else {
		inner = m.theme.InputPlaceholder.Render(m.statusLine())
	}
	return m.theme.InputContainer.Width(m.width).Render(inner)
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) renderStatusBar() string {
	left := m.statusLine()
	if m.statusMsg != "" {
		left = m.statusMsg
	}

	var shortcuts []string
	for _, b := range m.keyMap.ShortHelp() {
		h := b.Help()
		shortcuts = append(shortcuts,
			m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	right := strings.Join(shortcuts, "  ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		return m.theme.StatusBar.Width(m.width).Render(util.TruncateWidth(left, m.width-2))
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// OVERLAYS
// =============================================================================

func (m Model) renderHelpOverlay() string {
	var sb strings.Builder
	sb.WriteString(m.theme.HeaderTitle.Render("Keyboard shortcuts"))
	sb.WriteString("\n\n")

	for _, group := range m.keyMap.FullHelp() {
		for _, b := range group {
			h := b.Help()
			sb.WriteString(m.theme.ShortcutKey.Render(util.PadRight(h.Key, 12)))
			sb.WriteString(m.theme.ShortcutDesc.Render(h.Desc))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(m.theme.ShortcutDesc.Render("press C-h to close"))

	box := m.theme.Container.Render(sb.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderErrorOverlay() string {
	var sb strings.Builder
	sb.WriteString(m.theme.ErrorTitle.Render(m.lastError.Title))
	sb.WriteString("\n\n")
	sb.WriteString(m.theme.ErrorMessage.Render(m.lastError.Message))
	sb.WriteString("\n\n")
	sb.WriteString(m.theme.ShortcutDesc.Render("press Esc to dismiss"))

	box := m.theme.ErrorBox.Render(sb.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
