package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/five82/notechain/internal/notes"
	"github.com/five82/notechain/internal/state"
)

// Screen rows used by the header, column headings and footer.
const chromeLines = 5

const (
	colIndex    = 5
	colIcon     = 3
	colUploader = 14
	colVotes    = 7
	colMarker   = 20
	minNameCol  = 12
)

const markerMissingHash = "missing file hash"

func (m Model) listHeight() int {
	return max(1, m.height-chromeLines)
}

func (m *Model) moveSelection(delta int) {
	m.selectAt(m.selected + delta)
}

func (m *Model) selectAt(pos int) {
	count := len(m.entries())
	if count == 0 {
		m.selected, m.offset = 0, 0
		return
	}
	m.selected = min(max(pos, 0), count-1)
	m.ensureVisible()
}

// clampSelection keeps the selection valid after the collection or window
// size changed.
func (m *Model) clampSelection() {
	m.selectAt(m.selected)
}

func (m *Model) ensureVisible() {
	h := m.listHeight()
	if m.selected < m.offset {
		m.offset = m.selected
	}
	if m.selected >= m.offset+h {
		m.offset = m.selected - h + 1
	}
	m.offset = max(m.offset, 0)
}

// renderList renders column headings and the visible window of notes.
func (m Model) renderList() string {
	view := m.view()
	styles := m.theme.Styles()
	height := m.listHeight()
	nameWidth := m.nameWidth()

	lines := make([]string, 0, height+1)
	heading := padRight("#", colIndex) + padRight("", colIcon) + padRight("FILE", nameWidth+1) +
		padRight("UPLOADER", colUploader) + padRight("LIKES", colVotes) + padRight("DISLIKES", colVotes+2)
	lines = append(lines, styles.FaintText.Bold(true).Render(heading))

	if len(view.Entries) == 0 {
		lines = append(lines, m.emptyListLines(view.Suggestions)...)
		return strings.Join(lines, "\n")
	}

	start := m.offset
	if m.selected < start || m.selected >= start+height {
		start = max(0, m.selected-height+1)
	}
	end := min(len(view.Entries), start+height)
	for pos := start; pos < end; pos++ {
		lines = append(lines, m.renderRow(view.Entries[pos], pos == m.selected, nameWidth))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(entry notes.Entry, selected bool, nameWidth int) string {
	styles := m.theme.Styles()
	n := entry.Note

	name := truncate.StringWithTail(n.Filename, uint(nameWidth), "…")
	row := padRight(fmt.Sprintf("%d", entry.Index), colIndex) +
		padRight(notes.Icon(n.Filename), colIcon) +
		padRight(name, nameWidth+1) +
		padRight(notes.ShortAddress(n.UploaderLabel(), 6, 4), colUploader)

	likes := padRight(fmt.Sprintf("▲ %d", n.Likes), colVotes)
	dislikes := padRight(fmt.Sprintf("▼ %d", n.Dislikes), colVotes+2)
	marker := rowMarker(m.snapshot, entry)

	if selected {
		line := row + likes + dislikes + marker
		return styles.Selected.Width(m.width).Render(line)
	}

	var b strings.Builder
	b.WriteString(styles.Text.Render(row))
	b.WriteString(styles.SuccessText.UnsetBold().Render(likes))
	b.WriteString(styles.DangerText.UnsetBold().Render(dislikes))
	switch {
	case marker == markerMissingHash:
		b.WriteString(styles.DangerText.Render(marker))
	case marker != "":
		b.WriteString(styles.WarningText.Render(marker))
	}
	return b.String()
}

// rowMarker describes transient or broken states of a row.
func rowMarker(snap state.Snapshot, entry notes.Entry) string {
	if snap.IsInFlight(entry.Index) {
		return "voting…"
	}
	if !entry.Note.HasContent() {
		return markerMissingHash
	}
	return ""
}

func (m Model) emptyListLines(suggestions []string) []string {
	styles := m.theme.Styles()
	switch {
	case !m.snapshot.Connected():
		return []string{styles.MutedText.Render("Connect your wallet (c) to load notes.")}
	case m.snapshot.Load == state.Loading && len(m.snapshot.Notes) == 0:
		return []string{styles.MutedText.Render(m.spinner.View() + " Loading notes...")}
	case m.snapshot.Load == state.LoadFailed && len(m.snapshot.Notes) == 0:
		return []string{styles.DangerText.Render("Could not load notes. Press r to retry.")}
	case m.filter != "":
		lines := []string{styles.MutedText.Render(fmt.Sprintf("No notes match %q.", m.filter))}
		if len(suggestions) > 0 {
			lines = append(lines, styles.AccentText.Render("Did you mean: "+strings.Join(suggestions, ", ")))
		}
		return lines
	default:
		return []string{styles.MutedText.Render("No notes yet. Press u to upload one.")}
	}
}

func (m Model) nameWidth() int {
	fixed := colIndex + colIcon + 1 + colUploader + colVotes*2 + 2 + colMarker
	return max(minNameCol, m.width-fixed)
}

// padRight pads s with spaces to width display cells.
func padRight(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}
