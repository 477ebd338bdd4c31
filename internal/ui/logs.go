package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/notechain/internal/logtail"
)

// logTailLines caps how much of the log file the log view reads.
const logTailLines = 500

// logState holds the last read of the client log.
type logState struct {
	records []logtail.Record
	err     error
	follow  bool
	loaded  bool
}

type logsMsg struct {
	lines []string
	err   error
}

func readLogsCmd(path string) tea.Cmd {
	return func() tea.Msg {
		if strings.TrimSpace(path) == "" {
			return logsMsg{}
		}
		lines, err := logtail.Read(path, logTailLines)
		return logsMsg{lines: lines, err: err}
	}
}

func (m *Model) handleLogs(msg logsMsg) {
	if !m.logs.loaded {
		m.logs.follow = true
	}
	m.logs.loaded = true
	m.logs.err = msg.err
	if msg.err == nil {
		m.logs.records = logtail.ParseLines(msg.lines)
	}
	m.logViewport.SetContent(m.logContent())
	if m.logs.follow {
		m.logViewport.GotoBottom()
	}
}

func (m *Model) resizeLogViewport() {
	m.logViewport.Width = m.width
	m.logViewport.Height = m.listHeight()
	if m.logs.loaded {
		m.logViewport.SetContent(m.logContent())
	}
}

// handleLogsKey scrolls the log view. Scrolling up stops following; going to
// the bottom resumes it.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
		m.logs.follow = false
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		m.logs.follow = true
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		return m, readLogsCmd(m.logPath)
	}

	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	m.logs.follow = m.logViewport.AtBottom()
	return m, cmd
}

func (m Model) logContent() string {
	styles := m.theme.Styles()
	if m.logs.err != nil {
		return styles.DangerText.Render("cannot read log: " + m.logs.err.Error())
	}
	if len(m.logs.records) == 0 {
		return styles.MutedText.Render("No log entries yet.")
	}

	lines := make([]string, len(m.logs.records))
	for i, r := range m.logs.records {
		text := r.Format()
		switch strings.ToUpper(r.Level) {
		case "ERROR":
			lines[i] = styles.DangerText.UnsetBold().Render(text)
		case "WARN":
			lines[i] = styles.WarningText.Render(text)
		case "DEBUG":
			lines[i] = styles.FaintText.Render(text)
		default:
			lines[i] = styles.Text.Render(text)
		}
	}
	return strings.Join(lines, "\n")
}

// renderLogs renders the heading and the log viewport.
func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	heading := styles.FaintText.Bold(true).Render("LOG")
	if m.logs.follow {
		heading += styles.AccentText.Render("  following")
	}
	if !m.logs.loaded {
		return heading + "\n" + styles.MutedText.Render("Reading log...")
	}
	return heading + "\n" + m.logViewport.View()
}
