package app

import (
	"strings"
	"testing"

	"smcbot-tui/internal/run"
	"smcbot-tui/internal/storage"

	tea "github.com/charmbracelet/bubbletea"
)

func TestViewStaysWithinWindowHeight(t *testing.T) {
	t.Parallel()

	const width = 120
	const height = 30

	m := NewModel(Deps{})
	sizedModel, _ := m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	sized := sizedModel.(Model)

	view := sized.View()
	lineCount := strings.Count(view, "\n") + 1
	if lineCount > height {
		t.Fatalf("expected view line count <= window height (%d), got %d", height, lineCount)
	}
	for _, title := range []string{"Config JSON", "Live Console", "Run Results", "Run History"} {
		if !strings.Contains(view, title) {
			t.Fatalf("expected panel %q in view", title)
		}
	}
	if !strings.Contains(view, "stream offline") {
		t.Fatalf("expected offline indicator in view")
	}
}

func TestViewMarksLockedConfig(t *testing.T) {
	t.Parallel()

	m := NewModel(Deps{})
	sizedModel, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	sized := sizedModel.(Model)
	sized.view = run.View{RunID: "run-1", Status: run.Running, Running: true, ConfigLocked: true}

	if !strings.Contains(sized.View(), "Config JSON (locked)") {
		t.Fatalf("expected locked marker in config panel title")
	}
}

func TestRenderRunViewStates(t *testing.T) {
	t.Parallel()

	if got := renderRunView(run.View{}); !strings.Contains(got, "No run yet") {
		t.Fatalf("unexpected idle rendering: %q", got)
	}
	if got := renderRunView(run.View{Running: true}); got != "Requesting a new run..." {
		t.Fatalf("unexpected pending rendering: %q", got)
	}

	failed := renderRunView(run.View{RunID: "run-1", Status: run.Failed, Progress: 30, Message: "no candles for range"})
	if !strings.Contains(failed, "Error:\nno candles for range") {
		t.Fatalf("expected failure message, got %q", failed)
	}
	if strings.Contains(failed, "Result snapshot") {
		t.Fatalf("expected no result block for a failed run")
	}

	done := renderRunView(run.View{
		RunID:    "run-1",
		Status:   run.Cancelled,
		Progress: 62.5,
		Result:   map[string]any{"total_pnl": -12.5, "win_rate": 0.4, "total_trades": 10.0},
	})
	for _, want := range []string{"Status: cancelled", "62.5%", "Total PnL: -12.50", "Win rate: 40.0%", "Trades: 10"} {
		if !strings.Contains(done, want) {
			t.Fatalf("expected %q in %q", want, done)
		}
	}
}

func TestRenderProgressBarClamps(t *testing.T) {
	t.Parallel()

	if got := renderProgressBar(50, 10); got != "[#####.....]" {
		t.Fatalf("unexpected half bar: %q", got)
	}
	if got := renderProgressBar(150, 4); got != "[####]" {
		t.Fatalf("unexpected overfull bar: %q", got)
	}
	if got := renderProgressBar(-5, 4); got != "[....]" {
		t.Fatalf("unexpected negative bar: %q", got)
	}
}

func TestRenderFieldErrorsIsSorted(t *testing.T) {
	t.Parallel()

	got := renderFieldErrors(map[string]string{"timeframe": "is required", "leverage": "must be at least 1"})
	if got != "leverage must be at least 1 | timeframe is required" {
		t.Fatalf("unexpected field error text: %q", got)
	}
}

func TestWrapConsoleEntryIndentsContinuations(t *testing.T) {
	t.Parallel()

	lines := wrapConsoleEntry("bar 120 | BOS up | order block 42100-42250 | entry long", 20)
	if len(lines) < 2 {
		t.Fatalf("expected wrapped output, got %#v", lines)
	}
	for _, line := range lines[1:] {
		if !strings.HasPrefix(line, "  ") {
			t.Fatalf("expected indented continuation, got %q", line)
		}
	}
	if wrapConsoleEntry("   ", 20) != nil {
		t.Fatalf("expected blank entry to render nothing")
	}
}

func TestHighlightJSONKeysStylesObjectFields(t *testing.T) {
	t.Parallel()

	in := "{\n  \"alpha\": 0.1,\n  \"nested\": {\"beta\": true}\n}"
	out := highlightJSONKeys(in)

	if !strings.Contains(out, jsonKeyStyle.Render(`"alpha"`)) {
		t.Fatalf("expected alpha key to be styled, got: %q", out)
	}
	if !strings.Contains(out, jsonObjectKeyStyle.Render(`"nested"`)) {
		t.Fatalf("expected nested key to be styled, got: %q", out)
	}
	if !strings.Contains(out, jsonKeyStyle.Render(`"beta"`)) {
		t.Fatalf("expected beta key to be styled, got: %q", out)
	}
	if !strings.Contains(out, "0.1") || !strings.Contains(out, "true") {
		t.Fatalf("expected values to remain present, got: %q", out)
	}
}

func TestHighlightJSONKeysHandlesEscapedQuotes(t *testing.T) {
	t.Parallel()

	in := "{\"a\\\"b\": 1, \"value\": \"x:y\"}"
	out := highlightJSONKeys(in)

	if !strings.Contains(out, jsonKeyStyle.Render(`"a\"b"`)) {
		t.Fatalf("expected escaped-quote key to be styled, got: %q", out)
	}
	if !strings.Contains(out, jsonKeyStyle.Render(`"value"`)) {
		t.Fatalf("expected value key to be styled, got: %q", out)
	}
}

func TestHighlightJSONKeysUsesDistinctStyleForObjectValuedKeys(t *testing.T) {
	t.Parallel()

	in := "{\n  \"risk\": {\n    \"leverage\": 3\n  },\n  \"symbol\": \"BTCUSDT\"\n}"
	matches := jsonKeyPattern.FindAllStringIndex(in, -1)
	if len(matches) != 3 {
		t.Fatalf("expected 3 key matches, got %d", len(matches))
	}
	if !jsonKeyHasObjectValue(in, matches[0][1]) {
		t.Fatalf("expected first key to be classified as object-valued")
	}
	if jsonKeyHasObjectValue(in, matches[1][1]) {
		t.Fatalf("expected nested scalar key to not be object-valued")
	}
	if jsonKeyHasObjectValue(in, matches[2][1]) {
		t.Fatalf("expected primitive key to not be object-valued")
	}
}

func TestHistorySelectionAutoScrollsViewport(t *testing.T) {
	t.Parallel()

	m := NewModel(Deps{})
	m.history.Width = 120
	m.history.Height = 5
	m.historyItems = make([]storage.RunSummary, 12)
	for idx := range m.historyItems {
		m.historyItems[idx] = storage.RunSummary{
			SavedAt:   "2026-01-01T00:00:00Z",
			Symbol:    "BTCUSDT",
			Timeframe: "1h",
			Status:    "completed",
		}
	}

	m.historyCursor = 0
	m.refreshHistoryView()
	if m.history.YOffset != 0 {
		t.Fatalf("expected top selection offset 0, got %d", m.history.YOffset)
	}

	m.historyCursor = 7
	m.refreshHistoryView()
	if m.history.YOffset != 4 {
		t.Fatalf("expected offset 4 for cursor 7 with height 5, got %d", m.history.YOffset)
	}

	m.historyCursor = 11
	m.refreshHistoryView()
	if m.history.YOffset != 7 {
		t.Fatalf("expected offset 7 for cursor 11 with height 5, got %d", m.history.YOffset)
	}

	m.historyCursor = 2
	m.refreshHistoryView()
	if m.history.YOffset != 1 {
		t.Fatalf("expected offset 1 when moving selection back up, got %d", m.history.YOffset)
	}
}

func TestHistorySelectionIsHighlightedInView(t *testing.T) {
	t.Parallel()

	m := NewModel(Deps{})
	m.history.Width = 64
	m.history.Height = 5
	m.historyItems = []storage.RunSummary{
		{SavedAt: "2026-01-01T00:00:00Z", Symbol: "BTCUSDT", Timeframe: "1h", Status: "completed"},
		{SavedAt: "2026-01-02T00:00:00Z", Symbol: "ETHUSDT", Timeframe: "4h", Status: "cancelled"},
	}
	m.historyCursor = 1
	m.refreshHistoryView()

	view := m.history.View()
	if !strings.Contains(view, "▶ ") {
		t.Fatalf("expected selected history row marker in view, got %q", view)
	}
	if !strings.Contains(view, "ETHUSDT") {
		t.Fatalf("expected selected history row content in view, got %q", view)
	}
}

func TestHistoryCursorKeysMoveSelection(t *testing.T) {
	t.Parallel()

	m := NewModel(Deps{})
	m.focusPane = paneHistory
	m.historyItems = []storage.RunSummary{
		{SavedAt: "2026-01-02T00:00:00Z", Symbol: "BTCUSDT"},
		{SavedAt: "2026-01-01T00:00:00Z", Symbol: "ETHUSDT"},
	}
	m.refreshHistoryView()

	m = applyMsg(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.historyCursor != 1 {
		t.Fatalf("expected cursor 1 after down, got %d", m.historyCursor)
	}
	m = applyMsg(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.historyCursor != 1 {
		t.Fatalf("expected cursor to stay on the last row, got %d", m.historyCursor)
	}
	m = applyMsg(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	if m.historyCursor != 0 {
		t.Fatalf("expected cursor 0 after k, got %d", m.historyCursor)
	}
}

func TestHistoryAutoScrollAccountsForWrappedRows(t *testing.T) {
	t.Parallel()

	m := NewModel(Deps{})
	m.history.Width = 20
	m.history.Height = 4
	m.historyItems = make([]storage.RunSummary, 8)
	for idx := range m.historyItems {
		m.historyItems[idx] = storage.RunSummary{
			SavedAt:   "2026-01-01T00:00:00Z",
			Symbol:    "BTCUSDT",
			Timeframe: "15m",
			Status:    "completed",
		}
	}

	m.historyCursor = 6
	m.refreshHistoryView()

	if m.history.YOffset <= 0 {
		t.Fatalf("expected positive y-offset for wrapped history content, got %d", m.history.YOffset)
	}
	if m.historyCursorBottomLine < m.history.YOffset {
		t.Fatalf("expected selected row bottom line to be in/after viewport top")
	}
	if m.historyCursorTopLine > m.history.YOffset+m.history.Height-1 {
		t.Fatalf("expected selected row top line to be in/before viewport bottom")
	}
}

func TestFocusCyclesThroughPanes(t *testing.T) {
	t.Parallel()

	m := NewModel(Deps{})
	m = applyMsg(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focusPane != paneConsole || m.configEditor.Focused() {
		t.Fatalf("expected console focus with blurred editor, got pane=%d", m.focusPane)
	}
	m = applyMsg(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.focusPane != paneConfig || !m.configEditor.Focused() {
		t.Fatalf("expected config focus with focused editor, got pane=%d", m.focusPane)
	}
	if m.statusText != "Focus: config" {
		t.Fatalf("unexpected status text: %q", m.statusText)
	}
}
