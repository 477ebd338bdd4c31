package ui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/five82/notechain/internal/state"
)

// renderMain renders header, active screen and footer.
func (m Model) renderMain() string {
	var body string
	if m.screen == screenLogs {
		body = m.renderLogs()
	} else {
		body = m.renderList()
	}
	// Pin the footer to the bottom of the terminal.
	if pad := m.listHeight() + 1 - strings.Count(body, "\n") - 1; pad > 0 {
		body += strings.Repeat("\n", pad)
	}

	return strings.Join([]string{m.renderHeader(), body, m.renderFooter()}, "\n")
}

// renderFooter renders three lines: latest notice, upload status and either
// the open prompt or key hints.
func (m Model) renderFooter() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := newBgStyle(m.theme.Surface)

	lines := []string{
		m.noticeLine(styles, bg),
		m.statusLine(styles, bg),
	}
	if m.prompt != promptNone {
		lines = append(lines, m.input.View())
	} else {
		lines = append(lines, m.help.ShortHelpView(m.keys.ShortHelp()))
	}

	for i, line := range lines {
		lines[i] = styles.Footer.Width(m.width).Render(line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) noticeLine(styles Styles, bg bgStyle) string {
	notices := m.snapshot.Notices
	if len(notices) == 0 {
		return ""
	}
	latest := notices[len(notices)-1]
	text := latest.Message
	if extra := len(notices) - 1; extra > 0 {
		text = fmt.Sprintf("%s (+%d)", text, extra)
	}
	switch latest.Kind {
	case state.NoticeError:
		return bg.Render("✗ "+text, styles.DangerText)
	case state.NoticeSuccess:
		return bg.Render("✓ "+text, styles.SuccessText)
	default:
		return bg.Render("• "+text, styles.InfoText)
	}
}

func (m Model) statusLine(styles Styles, bg bgStyle) string {
	snap := m.snapshot
	var parts []string
	if p := snap.Pending; p != nil {
		parts = append(parts, bg.Render(fmt.Sprintf("pending %s (%s)", p.Filename, humanize.Bytes(uint64(p.Size))), styles.WarningText))
	}
	if n := len(snap.Orphans); n > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("%d orphaned pin(s), see logs", n), styles.DangerText.UnsetBold()))
	}
	if m.filter != "" {
		parts = append(parts, bg.Render(fmt.Sprintf("filter %q: %d shown", m.filter, len(m.entries())), styles.AccentText))
	}
	if m.screen == screenLogs {
		parts = append(parts, bg.Render("log "+m.logPath, styles.FaintText))
	}
	return bg.Join(parts, 3)
}
