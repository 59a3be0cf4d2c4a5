// Package tui provides the terminal user interface for chat sessions.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/linanwx/curo/chat"
	"github.com/linanwx/curo/media"
)

// Panel is a composable TUI region with its own state, update logic, and view.
// The root App model orchestrates panels without knowing their internals.
type Panel interface {
	Update(tea.Msg) (Panel, tea.Cmd)
	View() string
	SetSize(width, height int)
}

// LogLineMsg carries a single log line from the logger writer.
type LogLineMsg struct{ Line string }

// EntriesMsg carries transcript entries to append to the conversation panel.
type EntriesMsg struct{ Entries []chat.Entry }

// InputSubmitMsg is emitted when the user presses Enter in the input panel.
type InputSubmitMsg struct{ Text string }

// SubmitDoneMsg is delivered when a submission resolves.
type SubmitDoneMsg struct{ Result chat.Result }

// AttachmentPickedMsg is emitted by the picker once a file has been loaded.
// A nil Attachment with a nil Err means the picker was cancelled.
type AttachmentPickedMsg struct {
	Attachment *media.Attachment
	Path       string
	Err        error
}
