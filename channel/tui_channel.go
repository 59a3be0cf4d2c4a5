package channel

import (
	"bytes"
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/linanwx/curo/channel/tui"
	"github.com/linanwx/curo/chat"
	"github.com/linanwx/curo/logger"
)

// TUIChannel runs a chat session in a bubbletea program.
type TUIChannel struct {
	ctrl *chat.Controller
}

func newTUIChannel(ctrl *chat.Controller) *TUIChannel {
	return &TUIChannel{ctrl: ctrl}
}

func (c *TUIChannel) Name() string { return "tui" }

func (c *TUIChannel) Run(ctx context.Context) error {
	app := tui.NewApp(ctx, c.ctrl)
	program := tea.NewProgram(app,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	// Redirect logger output to the TUI log panel.
	logger.Intercept(&logWriter{program: program})
	defer logger.Restore()

	logger.Info("chat session started (TUI mode)", "transcriptEntries", c.ctrl.Transcript().Len())
	_, err := program.Run()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// logWriter implements io.Writer and sends each write as a LogLineMsg to the TUI.
type logWriter struct {
	program *tea.Program
}

func (w *logWriter) Write(p []byte) (int, error) {
	// Split on newlines in case a single write contains multiple lines.
	for _, line := range bytes.Split(p, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		w.program.Send(tui.LogLineMsg{Line: string(line)})
	}
	return len(p), nil
}
