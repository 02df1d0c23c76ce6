package run

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"running":   Running,
		"queued":    Running,
		"":          Running,
		"COMPLETED": Completed,
		"succeeded": Completed,
		"canceled":  Cancelled,
		"cancelled": Cancelled,
		" failed ":  Failed,
		"error":     Failed,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseStatus(raw), raw)
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.False(t, Running.Terminal())
	assert.False(t, Idle.Terminal())
	assert.True(t, Failed.Terminal())
	assert.False(t, Failed.HasResult())
	assert.True(t, Cancelled.HasResult())
	assert.Equal(t, "cancelled", Cancelled.String())
}

func TestSnapshotDoesNotShareResult(t *testing.T) {
	s := NewStore()
	s.begin("r1")
	result := map[string]any{"total_pnl": 120.0, "equity": []any{1.0, 2.0}}
	assert.True(t, s.settle("r1", Completed, 100, "", result))

	result["total_pnl"] = 0.0
	snap := s.Snapshot()
	assert.Equal(t, 120.0, snap.Result["total_pnl"])

	snap.Result["total_pnl"] = -1.0
	snap.Result["equity"].([]any)[0] = 99.0
	again := s.Snapshot()
	assert.Equal(t, 120.0, again.Result["total_pnl"])
	assert.Equal(t, []any{1.0, 2.0}, again.Result["equity"])
}

func TestStoreIgnoresWritesForOtherRuns(t *testing.T) {
	s := NewStore()
	s.begin("r2")

	assert.False(t, s.progress("r1", 50, "old"))
	assert.False(t, s.settle("r1", Completed, 100, "", map[string]any{"x": 1.0}))
	assert.False(t, s.release("r1"))

	v := s.Snapshot()
	assert.Equal(t, "r2", v.RunID)
	assert.Equal(t, Running, v.Status)
	assert.True(t, v.Running)
}

func TestStoreNeverMovesBackward(t *testing.T) {
	s := NewStore()
	s.begin("r1")
	assert.True(t, s.settle("r1", Failed, 20, "boom", nil))

	assert.False(t, s.progress("r1", 30, "late"))
	assert.False(t, s.settle("r1", Completed, 100, "", map[string]any{}))
	v := s.Snapshot()
	assert.Equal(t, Failed, v.Status)
	assert.Equal(t, "boom", v.Message)
}

func TestSettleRejectsNonTerminal(t *testing.T) {
	s := NewStore()
	s.begin("r1")
	assert.False(t, s.settle("r1", Running, 10, "", nil))
}

func TestStoreNotifiesOnlyOnChange(t *testing.T) {
	s := NewStore()
	ch, cancel := s.Subscribe()
	defer cancel()

	s.begin("r1")
	assert.Len(t, ch, 1)
	<-ch

	assert.True(t, s.progress("r1", 0, ""))
	assert.Len(t, ch, 0, "same progress is not a change")

	assert.True(t, s.progress("r1", 5, "bar 12"))
	assert.Len(t, ch, 1)
}

func TestLockAndRestoreFlags(t *testing.T) {
	s := NewStore()
	prev := s.lockFlags()
	assert.Equal(t, flags{}, prev)
	v := s.Snapshot()
	assert.True(t, v.Running)
	assert.True(t, v.ConfigLocked)
	assert.Equal(t, Idle, v.Status)

	s.restoreFlags(prev)
	assert.Equal(t, View{}, s.Snapshot())
}
