// Package channel provides the terminal front ends of a chat session.
package channel

import (
	"context"
	"os"

	"golang.org/x/term"

	"github.com/linanwx/curo/chat"
)

// Channel is an interactive front end driving a chat controller.
type Channel interface {
	// Name returns the channel name ("tui" or "plain").
	Name() string

	// Run blocks until the user quits, input ends, or ctx is cancelled.
	Run(ctx context.Context) error
}

// NewChatChannel returns a TUI channel when stdin is a terminal and a
// line-oriented channel otherwise.
func NewChatChannel(ctrl *chat.Controller) Channel {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return newTUIChannel(ctrl)
	}
	return NewPlainChannel(ctrl, os.Stdin, os.Stdout)
}

func isQuit(text string) bool {
	switch text {
	case "exit", "quit", "/exit", "/quit":
		return true
	}
	return false
}
