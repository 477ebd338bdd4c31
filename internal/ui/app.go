package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/notechain/internal/controller"
	"github.com/five82/notechain/internal/notes"
	"github.com/five82/notechain/internal/prefs"
	"github.com/five82/notechain/internal/state"
	"github.com/five82/notechain/internal/wallet"
)

// Controller is the set of intents the TUI issues. *controller.Controller
// satisfies it.
type Controller interface {
	Store() *state.Store
	Snapshot() state.Snapshot
	Connect(ctx context.Context) (wallet.Session, error)
	Reload(ctx context.Context) error
	SelectFile(path, name string) (state.PendingUpload, error)
	Upload(ctx context.Context) error
	Like(ctx context.Context, index int) error
	Dislike(ctx context.Context, index int) error
	ContentURL(index int) (string, error)
	Download(ctx context.Context, index int, dir string) (string, error)
}

var _ Controller = (*controller.Controller)(nil)

// screen is the active main view.
type screen int

const (
	screenNotes screen = iota
	screenLogs
)

// promptKind identifies the text prompt currently shown, if any.
type promptKind int

const (
	promptNone promptKind = iota
	promptUploadPath
	promptUploadName
	promptFilter
)

// DefaultUIInterval is the default snapshot refresh interval.
const DefaultUIInterval = time.Second

// Options configures the UI.
type Options struct {
	Controller  Controller
	LogPath     string
	DownloadDir string
	ThemeName   string
	Filter      string
	PrefsPath   string
	PollTick    time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx         context.Context
	ctrl        Controller
	keys        keyMap
	prefsPath   string
	logPath     string
	downloadDir string
	pollTick    time.Duration

	// UI state
	theme    Theme
	screen   screen
	width    int
	height   int
	ready    bool
	showHelp bool

	// Data state
	snapshot state.Snapshot

	// List state
	filter   string
	selected int // position within the filtered entries
	offset   int

	// Prompt state
	prompt     promptKind
	input      textinput.Model
	uploadPath string

	// Widgets
	spinner spinner.Model
	help    help.Model

	// Log state
	logViewport viewport.Model
	logs        logState
}

// New creates a new Bubble Tea model.
func New(ctx context.Context, opts Options) Model {
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = DefaultThemeName
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	input := textinput.New()
	input.CharLimit = 512

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))

	m := Model{
		ctx:         ctx,
		ctrl:        opts.Controller,
		keys:        DefaultKeyMap(),
		prefsPath:   prefsPath,
		logPath:     opts.LogPath,
		downloadDir: opts.DownloadDir,
		pollTick:    pollTick,
		theme:       GetTheme(themeName),
		screen:      screenNotes,
		filter:      opts.Filter,
		input:       input,
		spinner:     spin,
		help:        help.New(),
		logViewport: viewport.New(0, 0),
	}
	if m.ctrl != nil {
		m.snapshot = m.ctrl.Snapshot()
	}
	m.applyThemeToWidgets()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
		m.spinner.Tick,
	}
	if m.ctrl != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.ctrl))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeLogViewport()
		m.clampSelection()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.clampSelection()
		return m, nil

	case intentDoneMsg:
		if m.ctrl == nil {
			return m, nil
		}
		return m, fetchSnapshotCmd(m.ctrl)

	case logsMsg:
		m.handleLogs(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.prompt != promptNone {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.prompt != promptNone {
		return m.handlePromptKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.applyThemeToWidgets()
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.ViewLogs):
		if m.screen == screenLogs {
			m.screen = screenNotes
			return m, nil
		}
		m.screen = screenLogs
		return m, readLogsCmd(m.logPath)

	case key.Matches(msg, m.keys.Escape):
		if m.screen == screenLogs {
			m.screen = screenNotes
			return m, nil
		}
		if m.filter != "" {
			m.setFilter("")
			m.savePrefs()
		}
		return m, nil
	}

	if m.screen == screenLogs {
		return m.handleLogsKey(msg)
	}
	return m.handleNotesKey(msg)
}

// handleNotesKey processes keys for the note list.
func (m Model) handleNotesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.Top):
		m.selectAt(0)
	case key.Matches(msg, m.keys.Bottom):
		m.selectAt(len(m.entries()) - 1)
	case key.Matches(msg, m.keys.HalfPageDown):
		m.moveSelection(max(1, m.listHeight()/2))
	case key.Matches(msg, m.keys.HalfPageUp):
		m.moveSelection(-max(1, m.listHeight()/2))

	case key.Matches(msg, m.keys.Connect):
		return m, m.intent("connect", func(ctx context.Context) error {
			_, err := m.ctrl.Connect(ctx)
			return err
		})

	case key.Matches(msg, m.keys.Reload):
		if !m.snapshot.Connected() {
			m.notify(state.NoticeInfo, "connect your wallet first")
			return m, nil
		}
		return m, m.intent("reload", m.ctrl.Reload)

	case key.Matches(msg, m.keys.Upload):
		cmd := m.openPrompt(promptUploadPath, "", "path to file")
		return m, cmd

	case key.Matches(msg, m.keys.Filter):
		cmd := m.openPrompt(promptFilter, m.filter, "filename contains")
		return m, cmd

	case key.Matches(msg, m.keys.Like):
		if entry, ok := m.selectedEntry(); ok {
			index := entry.Index
			return m, m.intent("like", func(ctx context.Context) error {
				return m.ctrl.Like(ctx, index)
			})
		}

	case key.Matches(msg, m.keys.Dislike):
		if entry, ok := m.selectedEntry(); ok {
			index := entry.Index
			return m, m.intent("dislike", func(ctx context.Context) error {
				return m.ctrl.Dislike(ctx, index)
			})
		}

	case key.Matches(msg, m.keys.CopyURL):
		if entry, ok := m.selectedEntry(); ok {
			m.copyURL(entry.Index)
		}

	case key.Matches(msg, m.keys.Save):
		if entry, ok := m.selectedEntry(); ok {
			index, dir := entry.Index, m.downloadDir
			return m, m.intent("download", func(ctx context.Context) error {
				_, err := m.ctrl.Download(ctx, index, dir)
				return err
			})
		}
	}
	return m, nil
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.ctrl != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.ctrl))
	}
	if m.screen == screenLogs {
		cmds = append(cmds, readLogsCmd(m.logPath))
	}
	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

// intent runs fn off the update loop and refreshes the snapshot both
// immediately, to show loading markers, and once fn returns.
func (m Model) intent(action string, fn func(ctx context.Context) error) tea.Cmd {
	if m.ctrl == nil {
		return nil
	}
	ctx := m.ctx
	run := func() tea.Msg {
		return intentDoneMsg{action: action, err: fn(ctx)}
	}
	return tea.Batch(run, fetchSnapshotCmd(m.ctrl))
}

func (m *Model) notify(kind state.NoticeKind, message string) {
	if m.ctrl == nil {
		return
	}
	m.ctrl.Store().Notify(kind, message)
	m.snapshot = m.ctrl.Snapshot()
}

func (m *Model) copyURL(index int) {
	url, err := m.ctrl.ContentURL(index)
	if err != nil {
		m.notify(state.NoticeError, err.Error())
		return
	}
	if err := writeClipboard(url); err != nil {
		m.notify(state.NoticeError, "clipboard unavailable: "+url)
		return
	}
	m.notify(state.NoticeInfo, "copied "+url)
}

// savePrefs persists the theme and filter; failures are ignored.
func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, LastFilter: m.filter})
}

func (m *Model) applyThemeToWidgets() {
	styles := m.theme.Styles()
	m.spinner.Style = styles.AccentText
	m.help.Styles.ShortKey = styles.WarningText
	m.help.Styles.ShortDesc = styles.MutedText
	m.help.Styles.ShortSeparator = styles.FaintText
	m.input.PromptStyle = styles.AccentText
	m.input.TextStyle = styles.Text
	m.input.PlaceholderStyle = styles.FaintText
}

// entries returns the filtered view of the current snapshot.
func (m Model) entries() []notes.Entry {
	return m.view().Entries
}

func (m Model) view() controller.View {
	return controller.BuildView(m.snapshot.Notes, m.filter)
}

func (m Model) selectedEntry() (notes.Entry, bool) {
	entries := m.entries()
	if m.selected < 0 || m.selected >= len(entries) {
		return notes.Entry{}, false
	}
	return entries[m.selected], true
}

func (m *Model) setFilter(filter string) {
	m.filter = filter
	m.selected = 0
	m.offset = 0
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type intentDoneMsg struct {
	action string
	err    error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(ctrl.Snapshot())
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, opts Options) error {
	if opts.Controller == nil {
		return errors.New("ui: controller is nil")
	}
	m := New(ctx, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
