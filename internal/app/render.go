package app

import (
	"cmp"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"smcbot-tui/internal/run"
	"smcbot-tui/internal/storage"
)

func renderRunView(view run.View) string {
	if strings.TrimSpace(view.RunID) == "" {
		if view.Running {
			return "Requesting a new run..."
		}
		return "No run yet. Press ctrl+r to launch a backtest."
	}

	lines := []string{
		fmt.Sprintf("Run ID: %s", view.RunID),
		fmt.Sprintf("Status: %s", view.Status),
		fmt.Sprintf("Progress: %s %5.1f%%", renderProgressBar(view.Progress, 24), view.Progress),
	}
	if msg := strings.TrimSpace(view.Message); msg != "" {
		label := "Message"
		if view.Status == run.Failed {
			label = "Error"
		}
		lines = append(lines, "", label+":", msg)
	}

	if view.Result != nil {
		lines = append(lines, "", "Result snapshot:")
		lines = append(lines, resultHeadline(view.Result)...)
		lines = append(lines, "", "Result fields (condensed):")
		lines = append(lines, summarizeResultFields(view.Result, 14)...)
	}
	return strings.Join(lines, "\n")
}

func resultHeadline(result map[string]any) []string {
	lines := make([]string, 0, 4)
	if pnl, ok := asFloat(result["total_pnl"]); ok {
		lines = append(lines, fmt.Sprintf("  Total PnL: %.2f", pnl))
	}
	if rate, ok := asFloat(result["win_rate"]); ok {
		lines = append(lines, fmt.Sprintf("  Win rate: %.1f%%", rate*100.0))
	}
	for _, key := range []string{"trades", "total_trades"} {
		if trades, ok := asFloat(result[key]); ok {
			lines = append(lines, fmt.Sprintf("  Trades: %.0f", trades))
			break
		}
	}
	if dd, ok := asFloat(result["max_drawdown"]); ok {
		lines = append(lines, fmt.Sprintf("  Max drawdown: %.1f%%", dd*100.0))
	}
	return lines
}

func renderBundle(bundle *storage.RunBundle) string {
	if bundle == nil {
		return "No bundle selected"
	}
	lines := []string{
		fmt.Sprintf("Run ID: %s", bundle.Summary.RunID),
		fmt.Sprintf("Saved at: %s", trimTime(bundle.Summary.SavedAt)),
		fmt.Sprintf("Status: %s", safeLabel(bundle.Summary.Status)),
		fmt.Sprintf("Market: %s %s", safeLabel(bundle.Summary.Symbol), bundle.Summary.Timeframe),
		fmt.Sprintf("Total PnL: %.2f", bundle.Summary.TotalPnL),
		fmt.Sprintf("Win rate: %.1f%%", bundle.Summary.WinRate*100.0),
		fmt.Sprintf("Trades: %d", bundle.Summary.Trades),
		"",
		fmt.Sprintf("Console lines captured: %d", len(bundle.Console)),
	}
	lines = append(lines, "", "Result fields (condensed):")
	lines = append(lines, summarizeResultFields(bundle.Result, 14)...)
	return strings.Join(lines, "\n")
}

func renderProgressBar(percent float64, width int) string {
	width = max(4, width)
	filled := int(clamp(percent, 0, 100) / 100.0 * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func renderFieldErrors(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+" "+fields[key])
	}
	return strings.Join(parts, " | ")
}

func highlightJSONKeys(text string) string {
	if strings.IndexByte(text, '"') == -1 {
		return text
	}
	matches := jsonKeyPattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var builder strings.Builder
	builder.Grow(len(text) + len(matches)*8)
	cursor := 0

	for _, bounds := range matches {
		start := bounds[0]
		end := bounds[1]
		if start < cursor {
			continue
		}
		builder.WriteString(text[cursor:start])
		match := text[start:end]
		colonIdx := strings.LastIndex(match, ":")
		if colonIdx <= 0 {
			builder.WriteString(match)
			cursor = end
			continue
		}
		keyStyle := jsonKeyStyle
		if jsonKeyHasObjectValue(text, end) {
			keyStyle = jsonObjectKeyStyle
		}
		builder.WriteString(keyStyle.Render(match[:colonIdx]))
		builder.WriteString(match[colonIdx:])
		cursor = end
	}
	builder.WriteString(text[cursor:])
	return builder.String()
}

func jsonKeyHasObjectValue(text string, valueSearchStart int) bool {
	valueStart := nextNonWhitespaceIndex(text, valueSearchStart)
	return valueStart < len(text) && text[valueStart] == '{'
}

func nextNonWhitespaceIndex(text string, start int) int {
	idx := start
	for idx < len(text) {
		switch text[idx] {
		case ' ', '\t', '\n', '\r':
			idx++
		default:
			return idx
		}
	}
	return idx
}

func summarizeResultFields(result map[string]any, maxFields int) []string {
	if len(result) == 0 {
		return []string{"  (empty)"}
	}
	keys := make([]string, 0, len(result))
	for key := range result {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	if maxFields <= 0 {
		maxFields = len(keys)
	}
	limit := min(maxFields, len(keys))

	lines := make([]string, 0, limit+1)
	for idx := 0; idx < limit; idx++ {
		key := keys[idx]
		lines = append(lines, fmt.Sprintf("  %s: %s", key, previewResultValue(result[key])))
	}
	if len(keys) > limit {
		lines = append(lines, fmt.Sprintf("  ... %d more fields", len(keys)-limit))
	}
	return lines
}

// previewResultValue renders one result field in a single line. Nested
// values inside a slice get a tighter budget.
func previewResultValue(value any) string {
	return previewValue(value, 72, true)
}

func previewValue(value any, width int, expandSlices bool) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(truncateText(strings.TrimSpace(v), width))
	case map[string]any:
		return fmt.Sprintf("{%d keys}", len(v))
	case []any:
		if !expandSlices || len(v) == 0 {
			return fmt.Sprintf("[%d items]", len(v))
		}
		sample := make([]string, 0, 2)
		for _, item := range v[:min(len(v), 2)] {
			sample = append(sample, previewValue(item, 24, false))
		}
		if len(v) > 2 {
			sample = append(sample, "...")
		}
		return fmt.Sprintf("[%d items: %s]", len(v), strings.Join(sample, ", "))
	case bool, float64, float32, int, int64, int32, uint, uint64, uint32, json.Number:
		return truncateText(fmt.Sprint(v), width)
	default:
		blob, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("<%T>", value)
		}
		return truncateText(string(blob), width)
	}
}

func truncateText(raw string, maxLen int) string {
	if maxLen < 4 {
		maxLen = 4
	}
	if len(raw) <= maxLen {
		return raw
	}
	return raw[:maxLen-3] + "..."
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func shortRunID(runID string) string {
	id := strings.TrimSpace(runID)
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func trimTime(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return parsed.Local().Format("2006-01-02 15:04:05")
	}
	return raw
}

func safeLabel(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "unknown"
	}
	return raw
}

// clamp bounds v to [low, high]; low wins when the range is empty.
func clamp[T cmp.Ordered](v, low, high T) T {
	if v < low {
		return low
	}
	return min(v, high)
}
