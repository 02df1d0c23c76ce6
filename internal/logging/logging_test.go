package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DebugLevel,
		" WARN ":  WarnLevel,
		"error":   ErrorLevel,
		"info":    InfoLevel,
		"verbose": InfoLevel,
		"":        InfoLevel,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseLevel(raw), raw)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: WarnLevel, Output: &buf})

	l.Info("hidden")
	l.Warn("shown", "run_id", "r1")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "run_id=r1")
}

func TestWithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: DebugLevel, Output: &buf, JSON: true}).With("component", "poller")
	l.Debug("tick")
	assert.Contains(t, buf.String(), `"component":"poller"`)
}

func TestOpenFile(t *testing.T) {
	w, closeFn, err := OpenFile("")
	require.NoError(t, err)
	require.NotNil(t, w)
	require.NoError(t, closeFn())

	path := filepath.Join(t.TempDir(), "logs", "dash.log")
	w, closeFn, err = OpenFile(path)
	require.NoError(t, err)
	l := New(&Config{Level: InfoLevel, Output: w})
	l.Info("hello")
	require.NoError(t, closeFn())

	blob, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(blob), "hello")
}
