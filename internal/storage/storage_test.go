package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "runs"))
	require.NoError(t, err)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	return s, &clock
}

func TestSaveAndLoadBundle(t *testing.T) {
	s, _ := newTestStore(t)

	summary, err := s.SaveRun(SaveRequest{
		RunID:   "r1-abcdef-123",
		Status:  "completed",
		Config:  map[string]any{"symbol": "BTCUSDT", "timeframe": "1h"},
		Result:  map[string]any{"total_pnl": 120.0, "win_rate": 0.55, "trades": 42.0},
		Console: []string{"bar 1", "bar 2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", summary.Symbol)
	assert.Equal(t, "1h", summary.Timeframe)
	assert.Equal(t, 120.0, summary.TotalPnL)
	assert.Equal(t, 42, summary.Trades)
	assert.Equal(t, "20240501-120000-r1-abcde", filepath.Base(summary.Directory))

	console, err := os.ReadFile(filepath.Join(summary.Directory, consoleFile))
	require.NoError(t, err)
	assert.Equal(t, "bar 1\nbar 2\n", string(console))

	bundle, err := s.LoadBundle(filepath.Base(summary.Directory))
	require.NoError(t, err)
	assert.Equal(t, summary, bundle.Summary)
	assert.Equal(t, []string{"bar 1", "bar 2"}, bundle.Console)
	assert.Equal(t, 0.55, bundle.Result["win_rate"])
}

func TestLoadBundleFallsBackToSplitFiles(t *testing.T) {
	s, _ := newTestStore(t)
	summary, err := s.SaveRun(SaveRequest{
		RunID:   "r2",
		Status:  "cancelled",
		Result:  map[string]any{"total_pnl": -3.0},
		Console: []string{"only line"},
	})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(summary.Directory, bundleFile)))

	bundle, err := s.LoadBundle(summary.Directory)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", bundle.Summary.Status)
	assert.Equal(t, -3.0, bundle.Result["total_pnl"])
	assert.Equal(t, []string{"only line"}, bundle.Console)
	assert.Equal(t, map[string]any{}, bundle.Config)
}

func TestListNewestFirstWithLimit(t *testing.T) {
	s, clock := newTestStore(t)
	for _, id := range []string{"first", "second", "third"} {
		_, err := s.SaveRun(SaveRequest{RunID: id, Status: "completed"})
		require.NoError(t, err)
		*clock = clock.Add(time.Minute)
	}
	require.NoError(t, os.MkdirAll(filepath.Join(s.RunsDir(), "not-a-bundle"), 0o755))

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].RunID)
	assert.Equal(t, "first", all[2].RunID)

	limited, err := s.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestLoadBundleErrors(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.LoadBundle(" ")
	require.Error(t, err)
	_, err = s.LoadBundle("missing")
	require.Error(t, err)
}

func TestSafeDirectoryName(t *testing.T) {
	s, _ := newTestStore(t)
	summary, err := s.SaveRun(SaveRequest{RunID: "../x/y", Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, s.RunsDir(), filepath.Dir(summary.Directory))
}

func TestNewStoreRequiresDir(t *testing.T) {
	_, err := NewStore("")
	require.Error(t, err)
}
