// Package storage keeps settled runs on disk so they can be browsed after
// the backend has forgotten them.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"smcbot-tui/internal/validate"
)

const (
	summaryFile = "summary.json"
	configFile  = "config.json"
	resultFile  = "result.json"
	consoleFile = "console.log"
	bundleFile  = "bundle.json"
)

type Store struct {
	runsDir string
	now     func() time.Time
}

type RunSummary struct {
	RunID     string  `json:"run_id"`
	SavedAt   string  `json:"saved_at"`
	Status    string  `json:"status"`
	Message   string  `json:"message,omitempty"`
	Symbol    string  `json:"symbol,omitempty"`
	Timeframe string  `json:"timeframe,omitempty"`
	TotalPnL  float64 `json:"total_pnl"`
	WinRate   float64 `json:"win_rate"`
	Trades    int     `json:"trades"`
	Directory string  `json:"directory"`
}

type RunBundle struct {
	Summary RunSummary     `json:"summary"`
	Config  map[string]any `json:"config"`
	Result  map[string]any `json:"result"`
	Console []string       `json:"console"`
}

// SaveRequest is one settled run.
type SaveRequest struct {
	RunID   string
	Status  string
	Message string
	Config  map[string]any
	Result  map[string]any
	Console []string
}

func NewStore(runsDir string) (*Store, error) {
	if strings.TrimSpace(runsDir) == "" {
		return nil, fmt.Errorf("runs dir is required")
	}
	if err := os.MkdirAll(runsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create runs dir: %w", err)
	}
	return &Store{runsDir: runsDir, now: time.Now}, nil
}

func (s *Store) RunsDir() string {
	return s.runsDir
}

func (s *Store) SaveRun(req SaveRequest) (RunSummary, error) {
	runID := strings.TrimSpace(req.RunID)
	if runID == "" {
		runID = "unknown"
	}
	config := req.Config
	if config == nil {
		config = map[string]any{}
	}
	result := req.Result
	if result == nil {
		result = map[string]any{}
	}
	console := req.Console
	if console == nil {
		console = []string{}
	}

	now := s.now().UTC()
	dirName := fmt.Sprintf("%s-%s", now.Format("20060102-150405"), safeName(shortID(runID)))
	dirPath := filepath.Join(s.runsDir, dirName)
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return RunSummary{}, fmt.Errorf("create run bundle dir: %w", err)
	}

	summary := RunSummary{
		RunID:     runID,
		SavedAt:   now.Format(time.RFC3339Nano),
		Status:    req.Status,
		Message:   req.Message,
		TotalPnL:  asFloat(result["total_pnl"]),
		WinRate:   asFloat(result["win_rate"]),
		Trades:    int(asFloat(firstOf(result, "trades", "total_trades"))),
		Directory: dirPath,
	}
	// Unknown or malformed config keys only cost the summary its labels.
	if decoded, err := validate.Decode(config); err == nil {
		summary.Symbol = decoded.Symbol
		summary.Timeframe = decoded.Timeframe
	}

	if err := writeJSON(filepath.Join(dirPath, summaryFile), summary); err != nil {
		return RunSummary{}, err
	}
	if err := writeJSON(filepath.Join(dirPath, configFile), config); err != nil {
		return RunSummary{}, err
	}
	if err := writeJSON(filepath.Join(dirPath, resultFile), result); err != nil {
		return RunSummary{}, err
	}
	if err := os.WriteFile(filepath.Join(dirPath, consoleFile), []byte(joinLines(console)), 0o644); err != nil {
		return RunSummary{}, fmt.Errorf("write console log: %w", err)
	}

	bundle := RunBundle{
		Summary: summary,
		Config:  config,
		Result:  result,
		Console: console,
	}
	if err := writeJSON(filepath.Join(dirPath, bundleFile), bundle); err != nil {
		return RunSummary{}, err
	}
	return summary, nil
}

// List returns saved runs, newest first.
func (s *Store) List(limit int) ([]RunSummary, error) {
	entries, err := os.ReadDir(s.runsDir)
	if err != nil {
		return nil, fmt.Errorf("read runs dir: %w", err)
	}

	summaries := make([]RunSummary, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		var summary RunSummary
		if err := readJSON(filepath.Join(s.runsDir, entry.Name(), summaryFile), &summary); err != nil {
			continue
		}
		if summary.Directory == "" {
			summary.Directory = filepath.Join(s.runsDir, entry.Name())
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].SavedAt > summaries[j].SavedAt
	})

	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// LoadBundle reads a saved run. A relative directory is resolved against the
// runs dir. Bundles missing bundle.json are rebuilt from the split files.
func (s *Store) LoadBundle(directory string) (*RunBundle, error) {
	dir := strings.TrimSpace(directory)
	if dir == "" {
		return nil, fmt.Errorf("directory is required")
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(s.runsDir, dir)
	}

	var bundle RunBundle
	if err := readJSON(filepath.Join(dir, bundleFile), &bundle); err == nil {
		if bundle.Summary.Directory == "" {
			bundle.Summary.Directory = dir
		}
		return &bundle, nil
	}

	if err := readJSON(filepath.Join(dir, summaryFile), &bundle.Summary); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, configFile), &bundle.Config); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, resultFile), &bundle.Result); err != nil {
		return nil, err
	}
	if blob, err := os.ReadFile(filepath.Join(dir, consoleFile)); err == nil {
		bundle.Console = splitLines(string(blob))
	}
	bundle.Summary.Directory = dir
	return &bundle, nil
}

func writeJSON(path string, value any) error {
	blob, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json for %s: %w", path, err)
	}
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, out any) error {
	blob, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(blob, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func splitLines(raw string) []string {
	raw = strings.TrimSuffix(raw, "\n")
	if raw == "" {
		return []string{}
	}
	return strings.Split(raw, "\n")
}

func shortID(runID string) string {
	if len(runID) > 8 {
		return runID[:8]
	}
	return runID
}

func safeName(raw string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, raw)
}

func firstOf(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if value, ok := m[key]; ok {
			return value
		}
	}
	return nil
}

func asFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	default:
		return 0
	}
}
