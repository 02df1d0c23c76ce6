package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"smcbot-tui/internal/run"
	"smcbot-tui/internal/storage"
	"smcbot-tui/internal/validate"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	chromeBG        = lipgloss.Color("#05090C")
	panelBorder     = lipgloss.Color("#2D6A80")
	accentPrimary   = lipgloss.Color("#50E3C2")
	accentSecondary = lipgloss.Color("#F6AE2D")
	mutedText       = lipgloss.Color("#8CA1AE")
	warningText     = lipgloss.Color("#FF6B6B")
)

var (
	headerStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(accentPrimary)

	statusStyle = lipgloss.NewStyle().
			Foreground(accentSecondary).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(warningText).
			Bold(true)

	onlineStyle = lipgloss.NewStyle().
			Foreground(accentPrimary)

	offlineStyle = lipgloss.NewStyle().
			Foreground(mutedText)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(accentPrimary).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(panelBorder).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedText)

	jsonKeyStyle = lipgloss.NewStyle().
			Foreground(accentPrimary).
			Bold(true)

	jsonObjectKeyStyle = lipgloss.NewStyle().
				Foreground(accentSecondary).
				Bold(true)

	historySelectedLineStyle = lipgloss.NewStyle().
					Foreground(accentPrimary).
					Bold(true)
)

var jsonKeyPattern = regexp.MustCompile(`"([^"\\]|\\.)*"\s*:`)

const (
	defaultRequestTimeout = 15 * time.Second
	historyLimit          = 200
)

// Runner starts, cancels and resets backend runs.
type Runner interface {
	Start(ctx context.Context, cfg map[string]any) (string, error)
	Stop(ctx context.Context, runID string) error
	Reset(ctx context.Context) (map[string]any, error)
}

// RunState is the read-only run view.
type RunState interface {
	Snapshot() run.View
	Subscribe() (<-chan struct{}, func())
}

// Console is the read side of the live log plus the manual clear action.
type Console interface {
	Lines() []string
	Connected() bool
	Subscribe() (<-chan struct{}, func())
	Clear()
}

type DefaultsSource interface {
	Defaults(ctx context.Context) (map[string]any, error)
}

// Deps are the collaborators the dashboard reads from and acts on. Any of
// them may be nil; the matching panels and actions are then inert.
type Deps struct {
	Runner         Runner
	Runs           RunState
	Console        Console
	Defaults       DefaultsSource
	History        *storage.Store
	RequestTimeout time.Duration
}

type ModelOptions struct {
	InitialConfigJSON string
	InitialConfigPath string
}

type defaultsLoadedMsg struct {
	defaults map[string]any
	err      error
}

type historyLoadedMsg struct {
	items []storage.RunSummary
	err   error
}

type runStartedMsg struct {
	runID  string
	config map[string]any
	err    error
}

type cancelRequestedMsg struct {
	runID string
	err   error
}

type resetDoneMsg struct {
	defaults map[string]any
	err      error
}

type runChangedMsg struct{}

type consoleChangedMsg struct{}

type bundleSavedMsg struct {
	summary storage.RunSummary
	err     error
}

type bundleLoadedMsg struct {
	bundle *storage.RunBundle
	err    error
}

type Model struct {
	deps Deps
	keys keyMap
	help help.Model

	ready  bool
	width  int
	height int

	configEditor textarea.Model
	console      viewport.Model
	results      viewport.Model
	history      viewport.Model
	spinner      spinner.Model

	focusPane focusPane
	showHelp  bool

	statusText     string
	errorText      string
	fieldErrors    validate.FieldErrors
	configPinned   bool
	lastConfigPath string

	view          run.View
	connected     bool
	starting      bool
	pendingConfig map[string]any
	runConfigID   string
	runConfig     map[string]any
	savedRunID    string
	showingBundle bool

	runChanges     <-chan struct{}
	consoleChanges <-chan struct{}
	unsubscribe    []func()

	historyItems            []storage.RunSummary
	historyCursor           int
	historyCursorTopLine    int
	historyCursorBottomLine int
	historyRenderedLines    int

	consoleEntries    []string
	consoleAutoFollow bool

	configPanelW int
	configPanelH int
	consoleW     int
	consoleH     int
	resultsW     int
	resultsH     int
	historyW     int
	historyH     int
}

func NewModel(deps Deps) Model {
	return NewModelWithOptions(deps, ModelOptions{})
}

func NewModelWithOptions(deps Deps, opts ModelOptions) Model {
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = defaultRequestTimeout
	}

	cfgEditor := textarea.New()
	cfgEditor.CharLimit = 2_000_000
	cfgEditor.Prompt = ""
	cfgEditor.ShowLineNumbers = true
	cfgEditor.SetHeight(20)
	cfgEditor.SetWidth(70)
	cfgEditor.Focus()
	cfgEditor.Placeholder = "Waiting for defaults from the backend..."

	console := viewport.New(50, 20)
	results := viewport.New(50, 14)
	history := viewport.New(40, 14)

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = lipgloss.NewStyle().Foreground(accentSecondary)

	helpView := help.New()
	helpView.Styles.ShortDesc = helpStyle
	helpView.Styles.FullDesc = helpStyle

	model := Model{
		deps:              deps,
		keys:              defaultKeyMap(),
		help:              helpView,
		configEditor:      cfgEditor,
		console:           console,
		results:           results,
		history:           history,
		spinner:           spin,
		focusPane:         paneConfig,
		statusText:        "Loading defaults...",
		consoleAutoFollow: true,
		configPanelW:      74,
		configPanelH:      22,
		consoleW:          54,
		consoleH:          22,
		resultsW:          54,
		resultsH:          16,
		historyW:          44,
		historyH:          16,
	}
	if strings.TrimSpace(opts.InitialConfigJSON) != "" {
		model.configEditor.SetValue(opts.InitialConfigJSON)
		model.configPinned = true
		model.lastConfigPath = strings.TrimSpace(opts.InitialConfigPath)
		if model.lastConfigPath != "" {
			model.statusText = "Loaded startup config from " + model.lastConfigPath
		} else {
			model.statusText = "Loaded startup config."
		}
	}

	if deps.Runs != nil {
		ch, cancel := deps.Runs.Subscribe()
		model.runChanges = ch
		model.unsubscribe = append(model.unsubscribe, cancel)
		model.view = deps.Runs.Snapshot()
	}
	if deps.Console != nil {
		ch, cancel := deps.Console.Subscribe()
		model.consoleChanges = ch
		model.unsubscribe = append(model.unsubscribe, cancel)
	}
	model.syncConsole()
	model.results.SetContent(renderRunView(model.view))
	model.refreshHistoryView()
	return model
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadDefaultsCmd(m.deps.Defaults, m.deps.RequestTimeout),
		loadHistoryCmd(m.deps.History),
		waitForSignal(m.runChanges, runChangedMsg{}),
		waitForSignal(m.consoleChanges, consoleChangedMsg{}),
	)
}

// waitForSignal turns one wake-up on ch into msg. A closed channel ends the
// subscription.
func waitForSignal(ch <-chan struct{}, msg tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return msg
	}
}

func loadDefaultsCmd(src DefaultsSource, timeout time.Duration) tea.Cmd {
	if src == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		defaults, err := src.Defaults(ctx)
		return defaultsLoadedMsg{defaults: defaults, err: err}
	}
}

func loadHistoryCmd(store *storage.Store) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		items, err := store.List(historyLimit)
		return historyLoadedMsg{items: items, err: err}
	}
}

func startRunCmd(runner Runner, cfg map[string]any, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		runID, err := runner.Start(ctx, cfg)
		return runStartedMsg{runID: runID, config: cfg, err: err}
	}
}

func cancelRunCmd(runner Runner, runID string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return cancelRequestedMsg{runID: runID, err: runner.Stop(ctx, runID)}
	}
}

func resetCmd(runner Runner, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		defaults, err := runner.Reset(ctx)
		return resetDoneMsg{defaults: defaults, err: err}
	}
}

func saveBundleCmd(store *storage.Store, req storage.SaveRequest) tea.Cmd {
	return func() tea.Msg {
		summary, err := store.SaveRun(req)
		return bundleSavedMsg{summary: summary, err: err}
	}
}

func loadBundleCmd(store *storage.Store, directory string) tea.Cmd {
	return func() tea.Msg {
		bundle, err := store.LoadBundle(directory)
		return bundleLoadedMsg{bundle: bundle, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizePanels()
		m.applyFocusState()
		return m, nil

	case spinner.TickMsg:
		if !m.view.Running && !m.starting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case defaultsLoadedMsg:
		if msg.err != nil {
			m.errorText = "Failed to load defaults: " + msg.err.Error()
			m.statusText = "Defaults unavailable. You can still paste a custom JSON config."
			return m, nil
		}
		if m.configPinned {
			m.statusText = "Defaults loaded. Existing config preserved."
			return m, nil
		}
		text, err := FormatConfigJSON(msg.defaults)
		if err != nil {
			m.errorText = "Could not render defaults JSON: " + err.Error()
			return m, nil
		}
		m.configEditor.SetValue(text)
		m.statusText = "Defaults loaded. Tune config and press ctrl+r to run."
		return m, nil

	case historyLoadedMsg:
		if msg.err != nil {
			m.errorText = "Failed to load run history: " + msg.err.Error()
			return m, nil
		}
		m.historyItems = append([]storage.RunSummary(nil), msg.items...)
		sort.SliceStable(m.historyItems, func(i, j int) bool {
			return m.historyItems[i].SavedAt > m.historyItems[j].SavedAt
		})
		m.refreshHistoryView()
		return m, nil

	case runStartedMsg:
		m.starting = false
		if msg.err != nil {
			return m, m.handleStartError(msg.err)
		}
		m.errorText = ""
		m.fieldErrors = nil
		m.runConfigID = msg.runID
		m.runConfig = msg.config
		m.statusText = fmt.Sprintf("Run %s started", shortRunID(msg.runID))
		return m, nil

	case cancelRequestedMsg:
		if msg.err != nil {
			m.errorText = "Cancel failed: " + msg.err.Error()
			return m, nil
		}
		m.errorText = ""
		m.statusText = fmt.Sprintf("Cancel requested for %s. Waiting for backend confirmation.", shortRunID(msg.runID))
		return m, nil

	case resetDoneMsg:
		m.fieldErrors = nil
		m.showingBundle = false
		m.syncConsole()
		if msg.err != nil {
			m.errorText = "Reset incomplete: " + msg.err.Error()
			m.statusText = "Run cleared. Defaults unavailable."
			return m, nil
		}
		text, err := FormatConfigJSON(msg.defaults)
		if err != nil {
			m.errorText = "Could not render defaults JSON: " + err.Error()
			return m, nil
		}
		m.configEditor.SetValue(text)
		m.configPinned = false
		m.lastConfigPath = ""
		m.errorText = ""
		m.statusText = "Reset to backend defaults."
		return m, nil

	case runChangedMsg:
		var cmd tea.Cmd
		if m.deps.Runs != nil {
			cmd = m.applyRunView(m.deps.Runs.Snapshot())
		}
		return m, tea.Batch(waitForSignal(m.runChanges, runChangedMsg{}), cmd)

	case consoleChangedMsg:
		m.syncConsole()
		return m, waitForSignal(m.consoleChanges, consoleChangedMsg{})

	case bundleSavedMsg:
		if msg.err != nil {
			m.errorText = "Could not save run bundle: " + msg.err.Error()
			return m, nil
		}
		m.statusText = fmt.Sprintf("Saved run bundle: %s", filepath.Base(msg.summary.Directory))
		return m, loadHistoryCmd(m.deps.History)

	case bundleLoadedMsg:
		if msg.err != nil {
			m.errorText = "Could not load bundle: " + msg.err.Error()
			return m, nil
		}
		m.showingBundle = true
		m.results.SetContent(renderBundle(msg.bundle))
		m.results.GotoTop()
		m.statusText = fmt.Sprintf("Loaded bundle %s", filepath.Base(msg.bundle.Summary.Directory))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.updateFocusedViewport(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	editing := m.focusPane == paneConfig

	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		return m.quit()
	case key.Matches(msg, m.keys.Quit) && !editing:
		return m.quit()
	case key.Matches(msg, m.keys.Next):
		m.focusPane = nextFocusPane(m.focusPane)
		m.applyFocusState()
		m.statusText = "Focus: " + focusPaneLabel(m.focusPane)
		return m, nil
	case key.Matches(msg, m.keys.Prev):
		m.focusPane = prevFocusPane(m.focusPane)
		m.applyFocusState()
		m.statusText = "Focus: " + focusPaneLabel(m.focusPane)
		return m, nil
	case key.Matches(msg, m.keys.Help) && !editing:
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.resizePanels()
		return m, nil
	case key.Matches(msg, m.keys.Start):
		return m.startRun()
	case key.Matches(msg, m.keys.Stop):
		return m.stopRun()
	case key.Matches(msg, m.keys.Reset):
		return m.resetRun()
	case key.Matches(msg, m.keys.Clear):
		if m.deps.Console != nil {
			m.deps.Console.Clear()
		}
		m.consoleEntries = nil
		m.rebuildConsoleContent(true)
		m.statusText = "Console cleared"
		return m, nil
	case key.Matches(msg, m.keys.Open) && m.focusPane == paneHistory:
		if len(m.historyItems) == 0 || m.deps.History == nil {
			return m, nil
		}
		item := m.historyItems[clamp(m.historyCursor, 0, len(m.historyItems)-1)]
		return m, loadBundleCmd(m.deps.History, item.Directory)
	case key.Matches(msg, m.keys.Up) && m.focusPane == paneHistory:
		if len(m.historyItems) > 0 {
			m.historyCursor = clamp(m.historyCursor-1, 0, len(m.historyItems)-1)
			m.refreshHistoryView()
		}
		return m, nil
	case key.Matches(msg, m.keys.Down) && m.focusPane == paneHistory:
		if len(m.historyItems) > 0 {
			m.historyCursor = clamp(m.historyCursor+1, 0, len(m.historyItems)-1)
			m.refreshHistoryView()
		}
		return m, nil
	}

	if editing {
		if m.view.ConfigLocked {
			m.statusText = "Config is locked while the run is active."
			return m, nil
		}
		var cmd tea.Cmd
		before := m.configEditor.Value()
		m.configEditor, cmd = m.configEditor.Update(msg)
		if m.configEditor.Value() != before {
			m.configPinned = true
		}
		return m, cmd
	}
	return m.updateFocusedViewport(msg)
}

func (m Model) updateFocusedViewport(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focusPane {
	case paneConsole:
		m.console, cmd = m.console.Update(msg)
		m.consoleAutoFollow = m.console.AtBottom()
	case paneResults:
		m.results, cmd = m.results.Update(msg)
	case paneHistory:
		m.history, cmd = m.history.Update(msg)
	}
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	for _, cancel := range m.unsubscribe {
		cancel()
	}
	m.unsubscribe = nil
	return m, tea.Quit
}

func (m Model) startRun() (tea.Model, tea.Cmd) {
	if m.view.Running || m.starting {
		m.errorText = "A run is active. Wait for it to settle or cancel it first."
		return m, nil
	}
	if m.deps.Runner == nil {
		m.errorText = "Backend is not configured."
		return m, nil
	}
	cfg, err := parseConfigJSON(m.configEditor.Value())
	if err != nil {
		m.errorText = "Config parse error: " + err.Error()
		return m, nil
	}
	if fields := validate.Config(cfg); fields != nil {
		m.fieldErrors = fields
		m.errorText = "Invalid config: " + renderFieldErrors(fields)
		m.statusText = "Run did not start."
		return m, nil
	}

	m.starting = true
	m.pendingConfig = cfg
	m.fieldErrors = nil
	m.errorText = ""
	m.statusText = "Starting run..."
	return m, tea.Batch(m.spinner.Tick, startRunCmd(m.deps.Runner, cfg, m.deps.RequestTimeout))
}

func (m *Model) handleStartError(err error) tea.Cmd {
	var invalid *run.ValidationError
	switch {
	case errors.Is(err, run.ErrSuperseded):
		return nil
	case errors.As(err, &invalid):
		m.fieldErrors = invalid.Fields
		m.errorText = "Invalid config: " + renderFieldErrors(invalid.Fields)
	default:
		m.errorText = "Run launch failed: " + err.Error()
	}
	m.statusText = "Run did not start."
	return nil
}

func (m Model) stopRun() (tea.Model, tea.Cmd) {
	runID := strings.TrimSpace(m.view.RunID)
	if !m.view.Running || runID == "" || m.deps.Runner == nil {
		m.errorText = "No active run to cancel."
		return m, nil
	}
	m.errorText = ""
	m.statusText = "Requesting cancellation..."
	return m, cancelRunCmd(m.deps.Runner, runID, m.deps.RequestTimeout)
}

func (m Model) resetRun() (tea.Model, tea.Cmd) {
	if m.view.Running || m.starting {
		m.errorText = "Reset is unavailable while a run is active."
		return m, nil
	}
	if m.deps.Runner == nil {
		m.errorText = "Backend is not configured."
		return m, nil
	}
	m.errorText = ""
	m.statusText = "Resetting..."
	return m, resetCmd(m.deps.Runner, m.deps.RequestTimeout)
}

// applyRunView records a fresh run snapshot and returns follow-up work:
// the spinner when a run becomes active, and a bundle save once it settles.
func (m *Model) applyRunView(view run.View) tea.Cmd {
	prev := m.view
	m.view = view
	if view.RunID != prev.RunID || view.Running {
		m.showingBundle = false
	}
	if !m.showingBundle {
		m.results.SetContent(renderRunView(view))
	}
	m.applyFocusState()

	var cmds []tea.Cmd
	if view.Running && !prev.Running {
		cmds = append(cmds, m.spinner.Tick)
	}
	if view.RunID != "" && view.Status != prev.Status && view.Settled() {
		m.statusText = fmt.Sprintf("Run %s %s.", shortRunID(view.RunID), view.Status)
	} else if prev.Running && !view.Running && !view.Settled() && view.RunID != "" && view.RunID == prev.RunID {
		m.statusText = fmt.Sprintf("Lost track of run %s. Status polling stopped.", shortRunID(view.RunID))
	}
	if cmd := m.settledRunCmd(view); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// settledRunCmd saves a settled run with a result exactly once.
func (m *Model) settledRunCmd(view run.View) tea.Cmd {
	if !view.Settled() || view.RunID == "" || view.RunID == m.savedRunID {
		return nil
	}
	m.savedRunID = view.RunID
	if !view.Status.HasResult() || view.Result == nil || m.deps.History == nil {
		return nil
	}
	return saveBundleCmd(m.deps.History, storage.SaveRequest{
		RunID:   view.RunID,
		Status:  view.Status.String(),
		Message: view.Message,
		Config:  m.configFor(view.RunID),
		Result:  view.Result,
		Console: append([]string(nil), m.consoleEntries...),
	})
}

func (m Model) configFor(runID string) map[string]any {
	if runID == m.runConfigID && m.runConfig != nil {
		return m.runConfig
	}
	return m.pendingConfig
}

func (m *Model) syncConsole() {
	if m.deps.Console == nil {
		m.rebuildConsoleContent(true)
		return
	}
	shouldFollow := m.focusPane != paneConsole || m.consoleAutoFollow || m.console.AtBottom()
	m.connected = m.deps.Console.Connected()
	m.consoleEntries = m.deps.Console.Lines()
	m.rebuildConsoleContent(shouldFollow)
}

func (m *Model) applyFocusState() {
	if m.focusPane == paneConfig && !m.view.ConfigLocked {
		m.configEditor.Focus()
		return
	}
	m.configEditor.Blur()
}

func (m Model) runsDirLabel() string {
	if m.deps.History == nil {
		return "the runs directory"
	}
	return m.deps.History.RunsDir()
}

func (m Model) View() string {
	if !m.ready {
		return "Booting smcbot-tui..."
	}

	innerWidth := max(40, m.width-2)
	innerHeight := max(12, m.height-2)

	connection := offlineStyle.Render("○ stream offline")
	if m.connected {
		connection = onlineStyle.Render("● stream live")
	}
	header := headerStyle.Render("SMC Bot Backtest Deck") + "  " + connection

	statusPrefix := "*"
	if m.view.Running || m.starting {
		statusPrefix = m.spinner.View()
	}
	statusBody := strings.TrimSpace(m.statusText)
	if statusBody == "" {
		statusBody = "Ready"
	}
	statusLine := statusStyle.Render(statusPrefix + " " + statusBody)
	if strings.TrimSpace(m.errorText) != "" {
		statusLine = errorStyle.Render(m.errorText)
	}

	configTitle := "Config JSON"
	if m.view.ConfigLocked {
		configTitle += " (locked)"
	}
	configPanel := renderPanel(
		configTitle,
		highlightJSONKeys(m.configEditor.View()),
		m.configPanelW,
		m.configPanelH,
		m.focusPane == paneConfig,
	)
	consolePanel := renderPanel(
		"Live Console",
		m.console.View(),
		m.consoleW,
		m.consoleH,
		m.focusPane == paneConsole,
	)
	topRow := lipgloss.JoinHorizontal(lipgloss.Top, configPanel, consolePanel)

	bottomRow := lipgloss.JoinHorizontal(lipgloss.Top,
		renderPanel(
			"Run Results",
			m.results.View(),
			m.resultsW,
			m.resultsH,
			m.focusPane == paneResults,
		),
		renderPanel(
			"Run History",
			m.history.View(),
			m.historyW,
			m.historyH,
			m.focusPane == paneHistory,
		),
	)

	parts := []string{header, statusLine, topRow, bottomRow, m.help.View(m.keys)}
	body := fitTextHeight(strings.Join(parts, "\n"), innerHeight)
	return lipgloss.NewStyle().
		Background(chromeBG).
		Foreground(lipgloss.Color("#E8F0F2")).
		Width(innerWidth).
		Height(innerHeight).
		Padding(0, 1).
		Render(body)
}

func parseConfigJSON(raw string) (map[string]any, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return map[string]any{}, nil
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}
