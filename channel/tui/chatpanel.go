package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/linanwx/curo/chat"
	"github.com/linanwx/curo/media"
	"github.com/linanwx/curo/termmd"
)

var (
	userMsgStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6")) // cyan
	imageMsgStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Italic(true)
)

// ChatPanel displays the transcript in a scrollable viewport.
type ChatPanel struct {
	viewport viewport.Model
	entries  []chat.Entry
	width    int
	render   func(string) string
}

// NewChatPanel creates a chat panel. Bot replies are rendered as Markdown.
func NewChatPanel() *ChatPanel {
	vp := viewport.New(0, 0)
	vp.SetContent("")
	return &ChatPanel{viewport: vp, render: termmd.Render}
}

func (p *ChatPanel) Update(msg tea.Msg) (Panel, tea.Cmd) {
	switch msg := msg.(type) {
	case EntriesMsg:
		p.entries = append(p.entries, msg.Entries...)
		p.refresh()
		return p, nil
	}
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *ChatPanel) View() string {
	return p.viewport.View()
}

func (p *ChatPanel) SetSize(width, height int) {
	p.viewport.Width = width
	p.viewport.Height = height
	if width != p.width {
		p.width = width
		p.refresh()
	}
}

func (p *ChatPanel) refresh() {
	lines := make([]string, 0, len(p.entries))
	for _, e := range p.entries {
		lines = append(lines, p.renderEntry(e))
	}
	p.viewport.SetContent(strings.Join(lines, "\n"))
	p.viewport.GotoBottom()
}

func (p *ChatPanel) renderEntry(e chat.Entry) string {
	var line string
	switch {
	case e.IsImage:
		line = imageMsgStyle.Render("> " + imagePlaceholder(e.Payload))
	case e.Sender == chat.SenderUser:
		line = userMsgStyle.Render("> " + e.Payload)
	default:
		line = p.render(e.Payload)
	}
	if p.width > 0 {
		line = lipgloss.NewStyle().Width(p.width).Render(line)
	}
	return line
}

// imagePlaceholder describes an image entry. Terminals cannot display data
// URLs, so the entry is summarised by type and size.
func imagePlaceholder(dataURL string) string {
	mimeType, data, err := media.ParseDataURL(dataURL)
	if err != nil {
		return "[image]"
	}
	return fmt.Sprintf("[image %s, %s]", mimeType, humanSize(len(data)))
}

func humanSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
