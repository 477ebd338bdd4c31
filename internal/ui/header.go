package ui

import (
	"fmt"
	"math/big"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/five82/notechain/internal/notes"
	"github.com/five82/notechain/internal/state"
)

const logoText = "notechain"

// renderHeader renders the status bar: logo, session, stats and activity.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := newBgStyle(m.theme.Surface)
	snap := m.snapshot

	parts := []string{
		bg.Render(logoText, styles.Logo),
		m.sessionBadge(styles, bg),
	}

	stats := snap.Stats()
	parts = append(parts, bg.Render(fmt.Sprintf("%d notes", stats.Notes), styles.Text),
		bg.Render(fmt.Sprintf("▲ %d", stats.Likes), styles.SuccessText.UnsetBold()),
		bg.Render(fmt.Sprintf("▼ %d", stats.Dislikes), styles.DangerText.UnsetBold()))

	if snap.Reward != nil {
		parts = append(parts, bg.Render("reward "+formatWei(snap.Reward), styles.WarningText))
	}
	parts = append(parts, m.activity(styles, bg))

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Padding(0, 1).
		Render(bg.Join(parts, 2))
}

func (m Model) sessionBadge(styles Styles, bg bgStyle) string {
	if !m.snapshot.Connected() {
		return bg.Render("press c to connect wallet", styles.MutedText)
	}
	return styles.Badge.Render(notes.ShortAddress(m.snapshot.Account, 6, 4))
}

// activity reports loading, uploading or staleness of the list.
func (m Model) activity(styles Styles, bg bgStyle) string {
	snap := m.snapshot
	switch {
	case snap.Uploading:
		return bg.Render(m.spinner.View()+" uploading", styles.WarningText)
	case snap.Load == state.Loading:
		return bg.Render(m.spinner.View()+" loading", styles.InfoText)
	case snap.IsOffline():
		return bg.Render(fmt.Sprintf("offline (%d failed reloads)", snap.ConsecutiveFailures), styles.DangerText)
	case !snap.LastLoaded.IsZero():
		return bg.Render("updated "+humanize.Time(snap.LastLoaded), styles.FaintText)
	default:
		return ""
	}
}

// formatWei renders a wei amount in ether with grouping.
func formatWei(wei *big.Int) string {
	if wei == nil {
		return "0 ETH"
	}
	ether, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18)).Float64()
	return humanize.CommafWithDigits(ether, 6) + " ETH"
}
