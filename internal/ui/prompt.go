package ui

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mitchellh/go-homedir"

	"github.com/five82/notechain/internal/state"
)

// writeClipboard is replaced in tests; headless hosts have no clipboard.
var writeClipboard = clipboard.WriteAll

func promptLabel(kind promptKind) string {
	switch kind {
	case promptUploadPath:
		return "Upload file: "
	case promptUploadName:
		return "Filename: "
	case promptFilter:
		return "Filter: "
	default:
		return ""
	}
}

func (m *Model) openPrompt(kind promptKind, value, placeholder string) tea.Cmd {
	m.prompt = kind
	m.input.Prompt = promptLabel(kind)
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.input.Blur()
	m.input.SetValue("")
}

// handlePromptKey routes keys to the open prompt. The filter prompt applies
// its value as the user types.
func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyEsc:
		if m.prompt == promptFilter {
			m.setFilter("")
			m.savePrefs()
		}
		m.uploadPath = ""
		m.closePrompt()
		return m, nil

	case tea.KeyEnter:
		return m.submitPrompt()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.prompt == promptFilter {
		m.setFilter(m.input.Value())
	}
	return m, cmd
}

func (m Model) submitPrompt() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())

	switch m.prompt {
	case promptFilter:
		m.setFilter(m.input.Value())
		m.closePrompt()
		m.savePrefs()
		return m, nil

	case promptUploadPath:
		if value == "" {
			m.closePrompt()
			m.notify(state.NoticeError, "select a file first")
			return m, nil
		}
		path, err := homedir.Expand(value)
		if err != nil {
			path = value
		}
		m.uploadPath = path
		cmd := m.openPrompt(promptUploadName, filepath.Base(path), "name recorded on the ledger")
		return m, cmd

	case promptUploadName:
		path, name := m.uploadPath, value
		m.uploadPath = ""
		m.closePrompt()
		return m, m.intent("upload", func(ctx context.Context) error {
			if _, err := m.ctrl.SelectFile(path, name); err != nil {
				return err
			}
			return m.ctrl.Upload(ctx)
		})
	}

	m.closePrompt()
	return m, nil
}
