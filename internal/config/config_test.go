package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	c, err := LoadFile(writeConfig(t, "story: cellar.twee\nseed: abc\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Story != "cellar.twee" || c.Seed != "abc" {
		t.Errorf("expected file values, got %+v", c)
	}
	if c.MaxRedirects != 50 || c.LogLevel != "warn" || c.AutosaveKey != "passage" {
		t.Errorf("expected defaults, got %+v", c)
	}
}

func TestLoadFileRejectsBadValues(t *testing.T) {
	for name, body := range map[string]string{
		"level": "log_level: loud\n",
		"yaml":  "story: [\n",
	} {
		if _, err := LoadFile(writeConfig(t, body)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("PASSAGE_CONFIG", writeConfig(t, "listen: :9000\n"))
	t.Setenv("PASSAGE_DB", "/tmp/x.db")

	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Listen != ":9000" || c.DBPath != "/tmp/x.db" {
		t.Errorf("expected env overrides, got %+v", c)
	}
}

func TestLoadMissing(t *testing.T) {
	t.Setenv("PASSAGE_CONFIG", "")
	t.Setenv("HOME", t.TempDir())

	c, err := Load("")
	if err != nil {
		t.Fatalf("expected defaults without a config file, got %v", err)
	}
	if c.Listen != "127.0.0.1:8080" {
		t.Errorf("expected the default listen address, got %q", c.Listen)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected a named missing file to fail")
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{"debug": slog.LevelDebug, "INFO": slog.LevelInfo, "warn": slog.LevelWarn, "error": slog.LevelError} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("%s: expected %v, got %v (%v)", in, want, got, err)
		}
	}
}
