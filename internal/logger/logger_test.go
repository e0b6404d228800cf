package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestInitWriterLevels(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	InitWriter(&buf, false)
	Debug("hidden")
	Info("shown", "feeds", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug output at info level")
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "feeds=3") {
		t.Errorf("unexpected output %q", out)
	}

	buf.Reset()
	InitWriter(&buf, true)
	Debug("visible")
	if !strings.Contains(buf.String(), "msg=visible") {
		t.Errorf("expected debug output, got %q", buf.String())
	}

	buf.Reset()
	Warn("notify skipped")
	Error("command failed", "error", "boom")
	out = buf.String()
	if !strings.Contains(out, "level=WARN msg=\"notify skipped\"") || !strings.Contains(out, "level=ERROR msg=\"command failed\" error=boom") {
		t.Errorf("unexpected output %q", out)
	}
}
