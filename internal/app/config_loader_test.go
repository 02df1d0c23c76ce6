package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigFileSuccess(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"symbol":"BTCUSDT","risk":{"leverage":3}}`), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	cfg, resolved, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile returned error: %v", err)
	}

	wantResolved, err := filepath.Abs(path)
	if err != nil {
		t.Fatalf("filepath.Abs: %v", err)
	}
	if resolved != wantResolved {
		t.Fatalf("resolved path mismatch: got %q want %q", resolved, wantResolved)
	}
	if _, ok := cfg["risk"].(map[string]any); !ok {
		t.Fatalf("expected risk object, got: %#v", cfg["risk"])
	}
}

func TestLoadConfigFileReadsYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	body := "symbol: ETHUSDT\ntimeframe: 4h\ninitial_capital: 2500\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	cfg, _, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile returned error: %v", err)
	}
	if cfg["symbol"] != "ETHUSDT" || cfg["timeframe"] != "4h" {
		t.Fatalf("unexpected YAML config: %#v", cfg)
	}

	text, err := FormatConfigJSON(cfg)
	if err != nil {
		t.Fatalf("FormatConfigJSON returned error: %v", err)
	}
	if !strings.Contains(text, `"initial_capital": 2500`) {
		t.Fatalf("unexpected formatted text: %q", text)
	}
}

func TestLoadConfigFileRejectsNonObjectJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`["not","an","object"]`), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, _, err := LoadConfigFile(path)
	if err == nil {
		t.Fatalf("expected error for non-object JSON")
	}
	if !strings.Contains(err.Error(), "top-level object") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadConfigFileRejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("symbol: [unclosed\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, _, err := LoadConfigFile(path)
	if err == nil || !strings.Contains(err.Error(), "parse config YAML") {
		t.Fatalf("expected YAML parse error, got %v", err)
	}
}

func TestLoadConfigFileRejectsURL(t *testing.T) {
	t.Parallel()

	_, _, err := LoadConfigFile("https://example.com/config.json")
	if err == nil {
		t.Fatalf("expected URL rejection error")
	}
	if !strings.Contains(err.Error(), "local filesystem paths") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFormatConfigJSONNilMap(t *testing.T) {
	t.Parallel()

	text, err := FormatConfigJSON(nil)
	if err != nil {
		t.Fatalf("FormatConfigJSON returned error: %v", err)
	}
	if strings.TrimSpace(text) != "{}" {
		t.Fatalf("unexpected formatted text: %q", text)
	}
}
