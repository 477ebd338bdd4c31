package ui

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/five82/notechain/internal/notes"
	"github.com/five82/notechain/internal/state"
)

func TestRowMarker(t *testing.T) {
	snap := state.Snapshot{InFlight: []int{1}}
	tests := []struct {
		name  string
		entry notes.Entry
		want  string
	}{
		{"in flight wins", notes.Entry{Index: 1, Note: notes.Note{}}, "voting…"},
		{"missing hash", notes.Entry{Index: 0, Note: notes.Note{Filename: "a.pdf"}}, markerMissingHash},
		{"normal", notes.Entry{Index: 2, Note: notes.Note{ContentID: "QmX"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rowMarker(snap, tt.entry); got != tt.want {
				t.Fatalf("rowMarker = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderListShowsRows(t *testing.T) {
	m := newTestModel(t, newFakeController(sampleNotes()...))
	out := m.renderList()
	for _, want := range []string{"algebra.pdf", "biology.txt", "0x1234...5678", markerMissingHash, "▲ 3", "▼ 1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("list missing %q:\n%s", want, out)
		}
	}
}

func TestRenderListEmptyStates(t *testing.T) {
	disconnected := newTestModel(t, newFakeController())
	if out := disconnected.renderList(); !strings.Contains(out, "Connect your wallet") {
		t.Fatalf("disconnected list should prompt for a wallet:\n%s", out)
	}

	m := newTestModel(t, newFakeController(sampleNotes()...))
	m.setFilter("algbra")
	out := m.renderList()
	if !strings.Contains(out, `No notes match "algbra"`) {
		t.Fatalf("missing no-match text:\n%s", out)
	}
	if !strings.Contains(out, "Did you mean: algebra.pdf") {
		t.Fatalf("missing suggestion:\n%s", out)
	}
}

func TestViewFitsTerminalHeight(t *testing.T) {
	m := newTestModel(t, newFakeController(sampleNotes()...))
	if got := strings.Count(m.View(), "\n") + 1; got != m.height {
		t.Fatalf("view height = %d lines, want %d", got, m.height)
	}
}

func TestHeaderShowsSessionAndReward(t *testing.T) {
	ctrl := newFakeController(sampleNotes()...)
	ctrl.store.SetReward(big.NewInt(1e16))
	m := newTestModel(t, ctrl)

	out := m.renderHeader()
	for _, want := range []string{logoText, "0x1234...5678", "3 notes", "reward 0.01 ETH"} {
		if !strings.Contains(out, want) {
			t.Fatalf("header missing %q:\n%s", want, out)
		}
	}
}

func TestFormatWei(t *testing.T) {
	tests := []struct {
		wei  *big.Int
		want string
	}{
		{nil, "0 ETH"},
		{big.NewInt(1e16), "0.01 ETH"},
		{new(big.Int).Mul(big.NewInt(1500), big.NewInt(1e18)), "1,500 ETH"},
	}
	for _, tt := range tests {
		if got := formatWei(tt.wei); got != tt.want {
			t.Fatalf("formatWei(%v) = %q, want %q", tt.wei, got, tt.want)
		}
	}
}

func TestHandleLogsFormatsRecords(t *testing.T) {
	m := newTestModel(t, newFakeController())
	m.handleLogs(logsMsg{lines: []string{
		`{"time":"2026-01-02T10:00:00Z","level":"INFO","msg":"reload finished","notes":3}`,
		"plain text line",
	}})

	if !m.logs.follow {
		t.Fatalf("first load should follow the tail")
	}
	content := m.logContent()
	if !strings.Contains(content, "reload finished") || !strings.Contains(content, "notes=3") {
		t.Fatalf("log content missing structured record:\n%s", content)
	}
	if !strings.Contains(content, "plain text line") {
		t.Fatalf("log content missing raw line:\n%s", content)
	}

	m.handleLogs(logsMsg{err: errors.New("open: no such file")})
	if !strings.Contains(m.logContent(), "cannot read log") {
		t.Fatalf("log error not shown")
	}
}
