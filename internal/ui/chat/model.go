// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the room chat view for the TUI.
package chat

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/roomchat-tui/internal/llm"
	"github.com/jeranaias/roomchat-tui/internal/reconcile"
	"github.com/jeranaias/roomchat-tui/internal/roomstore"
	"github.com/jeranaias/roomchat-tui/internal/session"
	"github.com/jeranaias/roomchat-tui/internal/transcript"
	"github.com/jeranaias/roomchat-tui/internal/ui/styles"
)

// apologyText replaces the bot placeholder when a completion fails
// after the user's message is already on the record.
const apologyText = "Sorry, I couldn't come up with a response. Please try again."

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the room chat view. The event
// loop serializes every mutation of the message view; async work
// reaches it only as messages.
type Model struct {
	// Styling
	theme *styles.Theme

	// Dimensions
	width  int
	height int

	// Reconciled message view
	view *reconcile.View

	// Session lifecycle and generation tracking
	session *session.Manager

	// Async operation runner
	runner *Runner

	// Model identifier shown in the status bar
	modelName string

	// Streaming state
	streamingBuffer *StreamingBuffer
	streaming       bool
	ticking         bool
	streamCancel    context.CancelFunc

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keyMap   KeyMap

	// Markdown renderer for bot messages, rebuilt on resize so word
	// wrap tracks the terminal width.
	renderer *glamour.TermRenderer

	// Presentation settings from the configuration
	opts Options

	// Overlay state
	showHelp  bool
	lastError *ErrorMsg
	statusMsg string
}

// Options carries the user-facing presentation settings from the
// configuration into the chat view.
type Options struct {
	// Handle replaces the default user author label when set.
	Handle string
	// Compact drops the blank line between messages.
	Compact bool
	// ShowTimestamps displays per-message clock times.
	ShowTimestamps bool
}

// New creates the chat model.
func New(theme *styles.Theme, sess *session.Manager, runner *Runner, modelName string, opts Options) Model {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 4000
	input.Prompt = "> "

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	return Model{
		theme:           theme,
		view:            reconcile.NewView(),
		session:         sess,
		runner:          runner,
		modelName:       modelName,
		opts:            opts,
		streamingBuffer: NewStreamingBuffer(),
		viewport:        viewport.New(0, 0),
		input:           input,
		spinner:         sp,
		keyMap:          DefaultKeyMap(),
	}
}

// Init starts the input cursor blink and the loading spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case RoomCreatedMsg:
		return m.handleRoomCreated(msg)

	case RoomJoinedMsg:
		return m.handleRoomJoined(msg)

	case RemoteInsertMsg:
		return m.handleRemoteInsert(msg)

	case FeedClosedMsg:
		return m.handleFeedClosed(msg)

	case StreamStartMsg:
		return m.handleStreamStart(msg)

	case StreamTokenMsg:
		return m.handleStreamToken(msg)

	case StreamTickMsg:
		return m.handleStreamTick(msg)

	case StreamCompleteMsg:
		return m.handleStreamComplete(msg)

	case StreamErrorMsg:
		return m.handleStreamError(msg)

	case PersistResultMsg:
		return m.handlePersistResult(msg)

	case ExportCompleteMsg:
		if msg.Err != nil {
			m.statusMsg = "export failed: " + msg.Err.Error()
		} else {
			m.statusMsg = "transcript saved to " + msg.Path
		}
		return m, nil

	case ErrorMsg:
		m.lastError = &msg
		return m, nil

	case ErrorDismissMsg:
		m.lastError = nil
		m.input.Focus()
		return m, textinput.Blink

	case spinner.TickMsg:
		if m.session.State() == session.StateLoading || m.streaming {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	default:
		if m.session.CanSubmit() {
			var inputCmd tea.Cmd
			m.input, inputCmd = m.input.Update(msg)
			cmds = append(cmds, inputCmd)
		}

		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		cmds = append(cmds, vpCmd)

		return m, tea.Batch(cmds...)
	}
}

// View renders the chat view.
func (m Model) View() string {
	return m.renderChat()
}

// =============================================================================
// ROOM LIFECYCLE HANDLERS
// =============================================================================

func (m Model) handleRoomCreated(msg RoomCreatedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.session.Fail(msg.Err)
		m.lastError = &ErrorMsg{Title: "Could not create room", Message: msg.Err.Error()}
		return m, nil
	}
	m.statusMsg = "room created: share id " + msg.RoomID
	return m, nil
}

func (m Model) handleRoomJoined(msg RoomJoinedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.session.Fail(msg.Err)
		title := "Could not join room"
		if roomstore.IsNotFound(msg.Err) {
			title = "Room not found"
		}
		m.lastError = &ErrorMsg{Title: title, Message: msg.Err.Error()}
		return m, nil
	}

	if !m.session.Joined(msg.Gen, msg.Sub) {
		// A newer join superseded this one; the orphaned
		// subscription must not leak.
		if msg.Sub != nil {
			_ = msg.Sub.Close()
		}
		return m, nil
	}

	m.view.Seed(msg.Records)
	m.updateViewport()
	m.viewport.GotoBottom()
	m.input.Focus()
	return m, textinput.Blink
}

func (m Model) handleRemoteInsert(msg RemoteInsertMsg) (tea.Model, tea.Cmd) {
	if !m.session.Current(msg.Gen) {
		return m, nil
	}

	atBottom := m.viewport.AtBottom()
	m.view.ApplyRemote(msg.Record)
	m.updateViewport()
	if atBottom {
		m.viewport.GotoBottom()
	}
	return m, nil
}

func (m Model) handleFeedClosed(msg FeedClosedMsg) (tea.Model, tea.Cmd) {
	if !m.session.Current(msg.Gen) {
		return m, nil
	}
	m.session.Fail(msg.Err)
	m.lastError = &ErrorMsg{Title: "Connection lost", Message: "the room feed disconnected"}
	return m, nil
}

// =============================================================================
// STREAMING HANDLERS
// =============================================================================

func (m Model) handleStreamStart(msg StreamStartMsg) (tea.Model, tea.Cmd) {
	if !m.session.Current(msg.Gen) {
		return m, nil
	}

	m.streaming = true
	m.streamingBuffer.Reset()
	m.view.BeginBotStream()
	m.updateViewport()
	m.viewport.GotoBottom()

	if !m.ticking {
		m.ticking = true
		return m, tea.Batch(StreamTickCmd(), m.spinner.Tick)
	}
	return m, m.spinner.Tick
}

func (m Model) handleStreamToken(msg StreamTokenMsg) (tea.Model, tea.Cmd) {
	if !m.session.Current(msg.Gen) {
		return m, nil
	}
	m.streamingBuffer.Write(msg.Token)
	return m, nil
}

func (m Model) handleStreamTick(msg StreamTickMsg) (tea.Model, tea.Cmd) {
	if !m.streaming {
		m.ticking = false
		return m, nil
	}

	if content, ok := m.streamingBuffer.Flush(); ok {
		m.view.AppendChunk(content)
		m.updateViewport()
		m.viewport.GotoBottom()
	}
	return m, StreamTickCmd()
}

func (m Model) handleStreamComplete(msg StreamCompleteMsg) (tea.Model, tea.Cmd) {
	if !m.session.Current(msg.Gen) {
		return m, nil
	}

	if content, ok := m.streamingBuffer.ForceFlush(); ok {
		m.view.AppendChunk(content)
	}
	m.streaming = false
	m.streamCancel = nil
	m.session.EndStream(msg.Gen)

	// An empty stream leaves no message behind. The tail must be
	// dropped while it is still marked streaming.
	if tail := m.view.Last(); tail != nil && tail.IsStreaming && tail.IsEmpty() {
		m.view.DropStreamingTail()
		m.updateViewport()
		return m, nil
	}

	final := m.view.EndStream()
	if final == nil {
		return m, nil
	}

	m.updateViewport()
	m.viewport.GotoBottom()

	// The bot turn is durable only once the store confirms it.
	gen := msg.Gen
	roomID := m.session.RoomID()
	go m.runner.Persist(context.Background(), gen, roomID, final)

	return m, nil
}

func (m Model) handleStreamError(msg StreamErrorMsg) (tea.Model, tea.Cmd) {
	if !m.session.Current(msg.Gen) {
		return m, nil
	}

	m.streamingBuffer.Reset()
	m.streaming = false
	m.streamCancel = nil
	m.session.EndStream(msg.Gen)

	// The user's turn is already on the record, so the exchange must
	// not dangle without a reply. A static apology stands in for it,
	// locally only.
	if tail := m.view.Last(); tail != nil && tail.IsStreaming {
		tail.SetContent(apologyText)
	}
	m.updateViewport()
	m.viewport.GotoBottom()

	if llm.IsBlocked(msg.Err) {
		m.statusMsg = "response blocked by safety filter"
	} else {
		m.statusMsg = "completion failed"
	}
	return m, nil
}

// =============================================================================
// PERSISTENCE HANDLERS
// =============================================================================

func (m Model) handlePersistResult(msg PersistResultMsg) (tea.Model, tea.Cmd) {
	if !m.session.Current(msg.Gen) {
		return m, nil
	}
	if msg.Err == nil {
		// The confirmation echo on the feed normally performs the
		// adoption first, but the publish can fail after a durable
		// write and then no echo ever comes. Applying the carried
		// record is idempotent either way.
		m.view.ApplyRemote(msg.Record)
		m.updateViewport()
		return m, nil
	}

	if roomstore.IsNotFound(msg.Err) {
		m.session.Fail(msg.Err)
		m.lastError = &ErrorMsg{
			Title:   "Room expired",
			Message: "this room no longer exists; restart to create a new one",
		}
		return m, nil
	}

	m.view.MarkUnsynced(msg.CorrelationID)
	m.updateViewport()
	m.statusMsg = "message not synced"
	return m, nil
}

// =============================================================================
// INPUT HANDLERS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		// The session is closed by main after the program exits, so
		// the shareable room id survives for the goodbye print.
		if m.streamCancel != nil {
			m.streamCancel()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Cancel):
		if m.lastError != nil {
			m.lastError = nil
			m.input.Focus()
			return m, textinput.Blink
		}
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keyMap.Export):
		return m.handleExport()

	case key.Matches(msg, m.keyMap.Submit):
		return m.handleSubmit()

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keyMap.Home):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keyMap.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	if m.session.CanSubmit() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleSubmit runs the full submission pipeline: optimistic local
// insert, async persistence, then a completion stream over the
// history including the new message.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if text == "" || !m.session.CanSubmit() {
		return m, nil
	}

	m.session.RecordActivity()
	m.input.Reset()

	userMsg := m.view.SubmitUser(text)
	m.updateViewport()
	m.viewport.GotoBottom()

	gen := m.session.Generation()
	roomID := m.session.RoomID()

	// History for the completion includes the message just submitted.
	turns := llm.TurnsFromMessages(m.view.Messages())

	if !m.session.BeginStream(gen) {
		return m, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.streamCancel = cancel

	go m.runner.Persist(context.Background(), gen, roomID, userMsg)
	go m.runner.RunStream(ctx, gen, turns)

	return m, m.spinner.Tick
}

func (m Model) handleExport() (tea.Model, tea.Cmd) {
	roomID := m.session.RoomID()
	if roomID == "" {
		m.statusMsg = "no room to export"
		return m, nil
	}

	snap := transcript.Snapshot(roomID, m.modelName, m.view.Messages())
	if snap.MessageCount() == 0 {
		m.statusMsg = "nothing to export yet"
		return m, nil
	}

	go m.runner.Export(snap)
	m.statusMsg = "exporting transcript..."
	return m, nil
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	// header (1) + input (3) + status (1)
	const chromeHeight = 5
	vpHeight := msg.Height - chromeHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	m.viewport.Width = msg.Width
	m.viewport.Height = vpHeight
	m.input.Width = msg.Width - 4

	m.rebuildRenderer()
	m.updateViewport()
	m.viewport.GotoBottom()
	return m, nil
}

// =============================================================================
// STATUS
// =============================================================================

// statusLine builds the summary shown in the status bar.
func (m Model) statusLine() string {
	st := m.session.State()
	switch st {
	case session.StateLoading:
		return m.spinner.View() + " joining room"
	case session.StateStreaming:
		return m.spinner.View() + " " + m.modelName + " is responding"
	case session.StateFailed:
		return "session failed"
	case session.StateReady:
		return fmt.Sprintf("room %s | %d messages", m.session.RoomID(), m.view.Len())
	default:
		return "not connected"
	}
}
