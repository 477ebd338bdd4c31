package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Escape     key.Binding
	ViewLogs   key.Binding

	// Wallet and notes
	Connect key.Binding
	Upload  key.Binding
	Filter  key.Binding
	Like    key.Binding
	Dislike key.Binding
	CopyURL key.Binding
	Save    key.Binding
	Reload  key.Binding

	// Navigation
	Up           key.Binding
	Down         key.Binding
	Top          key.Binding
	Bottom       key.Binding
	HalfPageUp   key.Binding
	HalfPageDown key.Binding

	// Prompts
	Confirm key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Clear filter / back"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "Toggle log view"),
		),

		Connect: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Connect wallet"),
		),
		Upload: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "Upload a file"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Filter notes"),
		),
		Like: key.NewBinding(
			key.WithKeys("+", "L"),
			key.WithHelp("+/L", "Like note"),
		),
		Dislike: key.NewBinding(
			key.WithKeys("-", "D"),
			key.WithHelp("-/D", "Dislike note"),
		),
		CopyURL: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "Copy gateway URL"),
		),
		Save: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Save file"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Reload notes"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		HalfPageUp: key.NewBinding(
			key.WithKeys("ctrl+u", "pgup"),
			key.WithHelp("ctrl+u", "Half page up"),
		),
		HalfPageDown: key.NewBinding(
			key.WithKeys("ctrl+d", "pgdown"),
			key.WithHelp("ctrl+d", "Half page down"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
	}
}

// ShortHelp returns key bindings for the footer hint line.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Connect, k.Upload, k.Filter, k.Like, k.Dislike, k.Help, k.Quit}
}

// FullHelp returns key bindings for the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom, k.HalfPageDown, k.HalfPageUp},
		{k.Connect, k.Upload, k.Filter, k.Escape, k.Reload},
		{k.Like, k.Dislike, k.CopyURL, k.Save},
		{k.ViewLogs, k.CycleTheme, k.Help, k.Quit},
	}
}
