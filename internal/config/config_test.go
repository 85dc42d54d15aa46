package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("DOORHOLE_THEME", "")
	t.Setenv("DOORHOLE_LOG_LEVEL", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.jsonc"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Theme != "auto" || cfg.PlantUML.Format != "svg" {
		t.Fatalf("expected defaults; got %+v", cfg)
	}
	if !cfg.Hidden("links") || cfg.Hidden("text") {
		t.Fatalf("expected default hidden columns; got %v", cfg.HiddenColumns)
	}
	if !cfg.JournalEnabled() {
		t.Fatalf("expected journal enabled by default")
	}
}

func TestLoad_AcceptsCommentsAndTrailingCommas(t *testing.T) {
	t.Setenv("DOORHOLE_THEME", "")
	t.Setenv("DOORHOLE_LOG_LEVEL", "")
	t.Setenv("DOORHOLE_PLANTUML_SERVER", "")
	p := filepath.Join(t.TempDir(), "config.jsonc")
	body := `{
  // light terminals
  "theme": "light",
  "plantuml": {
    "server": "http://localhost:8080", /* local server */
    "format": "png",
  },
  "journal": {"enabled": false},
}`
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Theme != "light" || cfg.PlantUML.Server != "http://localhost:8080" || cfg.PlantUML.Format != "png" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.PlantUML.Command != "plantuml" {
		t.Fatalf("expected default command to fill in; got %q", cfg.PlantUML.Command)
	}
	if cfg.JournalEnabled() {
		t.Fatalf("expected journal disabled")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DOORHOLE_THEME", "dark")
	t.Setenv("DOORHOLE_LOG_LEVEL", "debug")
	t.Setenv("DOORHOLE_PLANTUML_SERVER", "http://uml")
	cfg, err := Load(filepath.Join(t.TempDir(), "none.jsonc"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Theme != "dark" || cfg.Log.Level != "debug" || cfg.PlantUML.Server != "http://uml" {
		t.Fatalf("expected env overrides; got %+v", cfg)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("DOORHOLE_THEME", "")
	t.Setenv("DOORHOLE_LOG_LEVEL", "")
	cases := map[string]string{
		"theme":   `{"theme": "purple"}`,
		"format":  `{"plantuml": {"format": "gif"}}`,
		"timeout": `{"plantuml": {"timeout": "soon"}}`,
		"level":   `{"log": {"level": "loud"}}`,
	}
	for name, body := range cases {
		p := filepath.Join(t.TempDir(), name+".jsonc")
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(p); err == nil || !strings.Contains(err.Error(), p) {
			t.Fatalf("%s: expected error mentioning the file; got %v", name, err)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	if l, err := ParseLogLevel("WARN"); err != nil || l != slog.LevelWarn {
		t.Fatalf("expected warn; got %v %v", l, err)
	}
	if _, err := ParseLogLevel("trace"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestStatePaths_RespectStateDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOORHOLE_STATE_DIR", dir)
	cfg := Default()
	p, err := cfg.JournalPath()
	if err != nil || p != filepath.Join(dir, "journal.sqlite") {
		t.Fatalf("unexpected journal path %q %v", p, err)
	}
	l, err := cfg.LogFile()
	if err != nil || l != filepath.Join(dir, "doorhole.log") {
		t.Fatalf("unexpected log path %q %v", l, err)
	}
}
