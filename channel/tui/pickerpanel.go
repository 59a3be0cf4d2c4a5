package tui

import (
	"os"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/linanwx/curo/media"
)

// PickerPanel lets the user choose an image file. Only image extensions are
// selectable.
type PickerPanel struct {
	picker        filepicker.Model
	width, height int
}

// NewPickerPanel creates a picker rooted at dir, or the working directory
// when dir is empty.
func NewPickerPanel(dir string) *PickerPanel {
	fp := filepicker.New()
	fp.AllowedTypes = media.ImageExtensions()
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		} else {
			dir = "."
		}
	}
	fp.CurrentDirectory = dir
	return &PickerPanel{picker: fp}
}

// Init reads the starting directory.
func (p *PickerPanel) Init() tea.Cmd {
	return p.picker.Init()
}

func (p *PickerPanel) Update(msg tea.Msg) (Panel, tea.Cmd) {
	var cmd tea.Cmd
	p.picker, cmd = p.picker.Update(msg)

	if ok, path := p.picker.DidSelectFile(msg); ok {
		return p, tea.Batch(cmd, loadAttachment(path))
	}
	return p, cmd
}

func (p *PickerPanel) View() string {
	return lipgloss.NewStyle().MaxWidth(p.width).MaxHeight(p.height).Render(p.picker.View())
}

func (p *PickerPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

func loadAttachment(path string) tea.Cmd {
	return func() tea.Msg {
		a, err := media.Load(path)
		return AttachmentPickedMsg{Attachment: a, Path: path, Err: err}
	}
}
