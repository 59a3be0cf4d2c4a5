package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/linanwx/curo/chat"
	"github.com/linanwx/curo/logger"
)

const defaultLogRatio = 0.3

var (
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	attachStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
)

// App is the root bubbletea model that orchestrates panels and layout.
// The chat controller owns all conversation state; the App only mirrors it.
type App struct {
	ctx  context.Context
	ctrl *chat.Controller

	logPanel   Panel
	chatPanel  Panel
	inputPanel *InputPanel
	picker     *PickerPanel
	pickerDir  string
	picking    bool

	spinner spinner.Model
	sending bool
	notice  string // last failure, shown until the next submission

	width, height int
	logRatio      float64
}

// NewApp creates the root TUI model bound to ctrl. Submissions run with ctx.
func NewApp(ctx context.Context, ctrl *chat.Controller) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return &App{
		ctx:        ctx,
		ctrl:       ctrl,
		logPanel:   NewLogPanel(),
		chatPanel:  NewChatPanel(),
		inputPanel: NewInputPanel("curo> "),
		spinner:    s,
		logRatio:   defaultLogRatio,
	}
}

func (m *App) Init() tea.Cmd {
	return nil
}

// busy reports whether the submit trigger is disabled.
func (m *App) busy() bool {
	return m.sending || m.ctrl.Draft().Pending()
}

func (m *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.picking {
			_, cmd := m.picker.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.picking {
			return m, m.updatePicker(msg)
		}
		switch msg.Type {
		case tea.KeyCtrlO:
			return m, m.openPicker()
		case tea.KeyEnter:
			if m.busy() {
				return m, nil
			}
		}
		p, cmd := m.inputPanel.Update(msg)
		m.inputPanel = p.(*InputPanel)
		m.ctrl.Draft().SetText(m.inputPanel.Value())
		cmds = append(cmds, cmd)

	case InputSubmitMsg:
		if m.busy() || strings.TrimSpace(msg.Text) == "" {
			return m, nil
		}
		m.ctrl.Draft().SetText(msg.Text)
		m.sending = true
		m.notice = ""
		cmds = append(cmds, m.spinner.Tick, m.submit())

	case SubmitDoneMsg:
		m.sending = false
		cmds = append(cmds, m.applyResult(msg.Result))

	case AttachmentPickedMsg:
		m.closePicker()
		switch {
		case msg.Err != nil:
			m.notice = fmt.Sprintf("cannot attach %s: %v", filepath.Base(msg.Path), msg.Err)
			logger.Warn("attachment rejected", "path", msg.Path, "err", msg.Err)
		default:
			// nil is a cancelled selection and leaves the draft untouched.
			m.ctrl.Draft().SelectAttachment(msg.Attachment)
		}

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case LogLineMsg:
		p, cmd := m.logPanel.Update(msg)
		m.logPanel = p
		cmds = append(cmds, cmd)

	case EntriesMsg:
		p, cmd := m.chatPanel.Update(msg)
		m.chatPanel = p
		cmds = append(cmds, cmd)

	case tea.MouseMsg:
		p, cmd := m.chatPanel.Update(msg)
		m.chatPanel = p
		cmds = append(cmds, cmd)

	default:
		// Directory listings and cursor blinks.
		if m.picking {
			cmds = append(cmds, m.updatePicker(msg))
		} else {
			p, cmd := m.inputPanel.Update(msg)
			m.inputPanel = p.(*InputPanel)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *App) submit() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return SubmitDoneMsg{Result: ctrl.Submit(ctx)}
	}
}

// applyResult mirrors a finished submission into the panels.
func (m *App) applyResult(res chat.Result) tea.Cmd {
	// The controller has reset (or kept) the draft; show what it holds now.
	m.inputPanel.SetValue(m.ctrl.Draft().Text())

	switch res.Status {
	case chat.StatusSucceeded:
		p, cmd := m.chatPanel.Update(EntriesMsg{Entries: res.Added})
		m.chatPanel = p
		return cmd
	case chat.StatusFailed:
		m.notice = "send failed, see log"
	}
	return nil
}

func (m *App) openPicker() tea.Cmd {
	m.picker = NewPickerPanel(m.pickerDir)
	m.picking = true
	m.recalcLayout()
	return m.picker.Init()
}

func (m *App) closePicker() {
	m.picking = false
	m.picker = nil
}

func (m *App) updatePicker(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
		m.closePicker()
		return nil
	}
	p, cmd := m.picker.Update(msg)
	m.picker = p.(*PickerPanel)
	if m.picker.picker.CurrentDirectory != "" {
		m.pickerDir = m.picker.picker.CurrentDirectory
	}
	return cmd
}

func (m *App) View() string {
	if m.width == 0 || m.height == 0 {
		return "initializing..."
	}

	sep := separatorStyle.Render(strings.Repeat("─", m.width))
	middle := m.chatPanel.View()
	if m.picking {
		middle = m.picker.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.logPanel.View(),
		sep,
		middle,
		sep,
		m.statusLine(),
		m.inputPanel.View(),
	)
}

func (m *App) statusLine() string {
	if m.picking {
		return statusStyle.Render("enter select · esc cancel")
	}
	if m.busy() {
		return m.spinner.View() + " Sending..."
	}

	var parts []string
	if a := m.ctrl.Draft().Attachment(); a != nil {
		parts = append(parts, attachStyle.Render(fmt.Sprintf("[%s, %s]", a.Name, humanSize(a.Size()))))
	}
	if m.notice != "" {
		parts = append(parts, errorStyle.Render(m.notice))
	}
	parts = append(parts, statusStyle.Render("enter send · ctrl+o attach image · ctrl+c quit"))
	return strings.Join(parts, " ")
}

func (m *App) recalcLayout() {
	const inputH = 1
	const statusH = 1
	const sepLines = 2 // two separator lines

	usable := max(m.height-inputH-statusH-sepLines, 2)
	logH := max(int(float64(usable)*m.logRatio), 1)
	chatH := max(usable-logH, 1)

	m.logPanel.SetSize(m.width, logH)
	m.chatPanel.SetSize(m.width, chatH)
	m.inputPanel.SetSize(m.width, inputH)
	if m.picker != nil {
		m.picker.SetSize(m.width, chatH)
	}
}
