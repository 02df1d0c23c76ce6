package logbuf

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbered(from, to int) []string {
	out := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, fmt.Sprintf("line %d", i))
	}
	return out
}

func TestAppendKeepsOrderAndDuplicates(t *testing.T) {
	b := New(10)
	b.Append([]string{"a", "b"})
	b.Append([]string{"b", "c"})
	assert.Equal(t, []string{"a", "b", "b", "c"}, b.Snapshot())
}

func TestAppendEvictsOldestFirst(t *testing.T) {
	b := New(5)
	b.Append(numbered(0, 3))
	b.Append(numbered(3, 8))

	require.Equal(t, 5, b.Len())
	assert.Equal(t, numbered(3, 8), b.Snapshot())
}

func TestAppendOversizedBatchKeepsTail(t *testing.T) {
	b := New(DefaultMaxLines)
	b.Append(numbered(0, 12000))

	got := b.Snapshot()
	require.Len(t, got, DefaultMaxLines)
	assert.Equal(t, "line 7000", got[0])
	assert.Equal(t, "line 11999", got[len(got)-1])
}

func TestAppendManySmallBatchesNeverExceedsCap(t *testing.T) {
	b := New(100)
	next := 0
	for batch := 1; batch < 40; batch++ {
		b.Append(numbered(next, next+batch))
		next += batch
		require.LessOrEqual(t, b.Len(), 100)
	}
	assert.Equal(t, numbered(next-100, next), b.Snapshot())
}

func TestClear(t *testing.T) {
	b := New(0)
	assert.Equal(t, DefaultMaxLines, b.Cap())
	b.Append([]string{"x"})
	b.Clear()
	assert.Empty(t, b.Snapshot())
	b.Append(nil)
	assert.Equal(t, 0, b.Len())
}

func TestSnapshotIsACopy(t *testing.T) {
	b := New(3)
	b.Append([]string{"a"})
	snap := b.Snapshot()
	snap[0] = "mutated"
	assert.Equal(t, []string{"a"}, b.Snapshot())
}
