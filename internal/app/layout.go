package app

import (
	"fmt"
	"math"
	"strings"
)

const (
	minConsolePanelHeight = 2
	consoleRenderLimit    = 8000
)

type focusPane int

const (
	paneConfig focusPane = iota
	paneConsole
	paneResults
	paneHistory
	paneCount
)

var paneLabels = [paneCount]string{"config", "console", "results", "history"}

func nextFocusPane(current focusPane) focusPane {
	return (current + 1) % paneCount
}

func prevFocusPane(current focusPane) focusPane {
	return (current + paneCount - 1) % paneCount
}

func focusPaneLabel(pane focusPane) string {
	if pane < 0 || pane >= paneCount {
		return "unknown"
	}
	return paneLabels[pane]
}

func renderPanel(title, body string, width, height int, focused bool) string {
	borderColor := panelBorder
	if focused {
		borderColor = accentSecondary
	}
	style := panelStyle.
		BorderForeground(borderColor).
		Width(width).
		Height(height)

	return style.Render(panelTitleStyle.Render(title) + "\n" + body)
}

func (m *Model) resizePanels() {
	if m.width <= 0 || m.height <= 0 {
		return
	}

	usableW := max(40, m.width-6)
	innerH := max(12, m.height-2)
	verticalOverhead := 5
	if m.showHelp {
		verticalOverhead = 7
	}
	panelRowsBudget := max(10, innerH-verticalOverhead)

	minBottomActual := 3
	minTopActual := minConsolePanelHeight + 2
	topH := int(math.Round(float64(panelRowsBudget) * 0.68))
	topH = clamp(topH, minTopActual, max(minTopActual, panelRowsBudget-minBottomActual))
	bottomH := max(minBottomActual, panelRowsBudget-topH)

	leftW := int(math.Round(float64(usableW) * 0.46))
	leftW = clamp(leftW, 30, usableW-20)
	rightW := usableW - leftW

	resultsW := int(math.Round(float64(usableW) * 0.62))
	resultsW = clamp(resultsW, 28, usableW-16)
	historyW := usableW - resultsW

	configInnerW := max(20, leftW-6)
	configEditorH := max(1, topH-3)
	m.configEditor.SetWidth(configInnerW)
	m.configEditor.SetHeight(configEditorH)
	m.configPanelW = configInnerW + 4
	m.configPanelH = configEditorH + 1

	consoleInnerW := max(18, rightW-6)
	consolePanelH := max(minConsolePanelHeight, topH-2)
	m.console.Width = consoleInnerW
	m.console.Height = max(1, consolePanelH-1)
	m.consoleW = consoleInnerW + 4
	m.consoleH = consolePanelH

	resultsInnerW := max(22, resultsW-6)
	resultsViewH := max(1, bottomH-3)
	m.results.Width = resultsInnerW
	m.results.Height = resultsViewH
	m.resultsW = resultsInnerW + 4
	m.resultsH = resultsViewH + 1

	historyInnerW := max(16, historyW-6)
	historyViewH := max(1, bottomH-3)
	m.history.Width = historyInnerW
	m.history.Height = historyViewH
	m.historyW = historyInnerW + 4
	m.historyH = historyViewH + 1

	m.help.Width = usableW
	m.rebuildConsoleContent(m.consoleAutoFollow)
	m.refreshHistoryView()
}

func (m *Model) refreshHistoryView() {
	if len(m.historyItems) == 0 {
		m.history.SetContent("No saved runs yet.\nSettled runs are stored under " + m.runsDirLabel())
		m.history.SetYOffset(0)
		m.historyCursorTopLine = 0
		m.historyCursorBottomLine = 0
		m.historyRenderedLines = 0
		return
	}

	m.historyCursor = clamp(m.historyCursor, 0, len(m.historyItems)-1)

	contentWidth := max(1, m.history.Width)
	lines := make([]string, 0, len(m.historyItems))
	m.historyCursorTopLine = 0
	m.historyCursorBottomLine = 0
	for idx, item := range m.historyItems {
		cursor := " "
		if idx == m.historyCursor {
			cursor = "▶"
		}
		line := fmt.Sprintf("%s %s | %s %s | %.2f | %s",
			cursor, trimTime(item.SavedAt), safeLabel(item.Symbol), item.Timeframe, item.TotalPnL, safeLabel(item.Status))
		lineTop := len(lines)
		for _, segment := range wrapLineToWidth(line, contentWidth) {
			if idx == m.historyCursor {
				segment = historySelectedLineStyle.Render(segment)
			}
			lines = append(lines, segment)
		}
		if idx == m.historyCursor {
			m.historyCursorTopLine = lineTop
			m.historyCursorBottomLine = len(lines) - 1
		}
	}
	m.history.SetContent(strings.Join(lines, "\n"))
	m.historyRenderedLines = len(lines)
	m.ensureHistoryCursorVisible()
}

func (m *Model) ensureHistoryCursorVisible() {
	if m.historyRenderedLines == 0 {
		m.history.SetYOffset(0)
		return
	}
	visibleRows := max(1, m.history.Height)
	cursorTop := clamp(m.historyCursorTopLine, 0, m.historyRenderedLines-1)
	cursorBottom := clamp(m.historyCursorBottomLine, cursorTop, m.historyRenderedLines-1)
	top := clamp(m.history.YOffset, 0, m.historyRenderedLines-1)
	bottom := top + visibleRows - 1
	scrollMargin := clamp(visibleRows/4, 1, 2)
	if cursorTop < top+scrollMargin {
		m.history.SetYOffset(cursorTop - scrollMargin)
		return
	}
	if cursorBottom > bottom-scrollMargin {
		m.history.SetYOffset(cursorBottom - (visibleRows - 1 - scrollMargin))
		return
	}
	m.history.SetYOffset(top)
}

func (m *Model) rebuildConsoleContent(shouldFollow bool) {
	if len(m.consoleEntries) == 0 {
		m.console.SetContent(m.consoleIdleText())
		m.console.GotoTop()
		m.consoleAutoFollow = true
		return
	}
	width := max(8, m.console.Width)
	rendered := make([]string, 0, len(m.consoleEntries))
	for _, entry := range m.consoleEntries {
		rendered = append(rendered, wrapConsoleEntry(entry, width)...)
	}
	if len(rendered) > consoleRenderLimit {
		rendered = rendered[len(rendered)-consoleRenderLimit:]
	}
	m.console.SetContent(strings.Join(rendered, "\n"))
	if shouldFollow {
		m.console.GotoBottom()
		m.consoleAutoFollow = true
	}
}

func (m Model) consoleIdleText() string {
	if m.connected {
		return "Connected. Waiting for console output..."
	}
	return "Console stream is offline. Reconnecting..."
}

func wrapLineToWidth(line string, width int) []string {
	width = max(1, width)
	runes := []rune(line)
	if len(runes) == 0 {
		return []string{""}
	}
	if len(runes) <= width {
		return []string{line}
	}
	segments := make([]string, 0, (len(runes)/width)+1)
	for start := 0; start < len(runes); start += width {
		end := min(start+width, len(runes))
		segments = append(segments, string(runes[start:end]))
	}
	return segments
}

// wrapConsoleEntry breaks one console line at separators where possible and
// indents continuation rows.
func wrapConsoleEntry(entry string, width int) []string {
	entry = strings.TrimSpace(strings.ReplaceAll(entry, "\t", "  "))
	if entry == "" {
		return nil
	}
	width = max(8, width)
	if len([]rune(entry)) <= width {
		return []string{entry}
	}

	const continuationPrefix = "  "
	lines := make([]string, 0, 4)
	remaining := entry
	first := true
	for {
		limit := width
		if !first {
			limit = max(4, width-len(continuationPrefix))
		}
		head, tail := splitWrappedSegment(remaining, limit)
		if !first {
			head = continuationPrefix + head
		}
		lines = append(lines, head)
		if tail == "" {
			break
		}
		remaining = tail
		first = false
	}
	return lines
}

func splitWrappedSegment(raw string, width int) (string, string) {
	width = max(1, width)
	runes := []rune(strings.TrimSpace(raw))
	if len(runes) <= width {
		return string(runes), ""
	}

	cut := width
	for idx := width; idx > 0; idx-- {
		ch := runes[idx-1]
		if ch == ' ' || ch == '|' || ch == ',' || ch == ';' {
			cut = idx
			break
		}
	}

	head := strings.TrimSpace(string(runes[:cut]))
	tail := strings.TrimSpace(string(runes[cut:]))
	if head == "" {
		head = strings.TrimSpace(string(runes[:width]))
		tail = strings.TrimSpace(string(runes[width:]))
	}
	return head, tail
}

func fitTextHeight(text string, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
