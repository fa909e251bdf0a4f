package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("expected %v for %q, got %v", want, in, got)
		}
	}
}

func TestJSONFormatAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l, _ := newLogger(&buf, Options{Format: "json", Level: "info"})
	WithComponent(l, "history").Info("snapshot", "pointer", 3)
	l.Debug("hidden")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected one json record, got %q: %v", buf.String(), err)
	}
	if rec["component"] != "history" || rec["pointer"] != 3.0 {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestFileSink(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "canvas.log")
	l, closer := newLogger(&buf, Options{File: path})
	l.Warn("disk", "free", "low")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"disk"`) || !strings.Contains(buf.String(), "msg=disk") {
		t.Fatalf("expected record in both sinks, got file %q console %q", data, buf.String())
	}
}
