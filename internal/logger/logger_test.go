package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func logTo(t *testing.T, opts Options) string {
	t.Helper()
	restore := zap.ReplaceGlobals(zap.NewNop())
	t.Cleanup(restore)

	path := filepath.Join(t.TempDir(), "app.log")
	opts.Paths = []string{path}
	log, err := New(opts)
	if err != nil {
		t.Fatalf("New(%+v): %v", opts, err)
	}
	log.Debug("hidden")
	log.Info("quote saved", zap.Uint("id", 7))
	_ = log.Sync()

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	return string(out)
}

func TestNewProductionWritesJSON(t *testing.T) {
	out := logTo(t, Options{})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line at info level, got %q", out)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %q (%v)", lines[0], err)
	}
	if entry["msg"] != "quote saved" || entry["level"] != "info" || entry["app"] != "devis" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("missing ts in %v", entry)
	}
}

func TestNewDevWritesConsole(t *testing.T) {
	out := logTo(t, Options{Dev: true, Level: "debug"})
	if !strings.Contains(out, "hidden") || !strings.Contains(out, "quote saved") {
		t.Fatalf("expected both entries, got %q", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("dev output should not be JSON: %q", out)
	}
	if !strings.Contains(out, "\x1b[") {
		t.Fatalf("dev output should color levels: %q", out)
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}
