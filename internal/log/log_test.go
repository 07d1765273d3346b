package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func captureOutput(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(nil)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t, LevelWarn)

	Debug("debug line")
	Info("info line")
	Warn("warn line")
	Error("error line", errors.New("boom"))

	out := buf.String()
	if strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Fatalf("lines below WARN were written: %q", out)
	}
	if !strings.Contains(out, "[WARN] warn line") {
		t.Fatalf("missing warn line: %q", out)
	}
	if !strings.Contains(out, "[ERROR] error line err=boom") {
		t.Fatalf("missing error line: %q", out)
	}
}

func TestKeyValueFormatting(t *testing.T) {
	buf := captureOutput(t, LevelDebug)

	Info("view built", "granularity", "month", "cells", 35, "label", "18 Oct", 42, "ignored", "dangling")

	line := buf.String()
	for _, want := range []string{"granularity=month", "cells=35", `label="18 Oct"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, "ignored") || strings.Contains(line, "dangling") {
		t.Fatalf("non-string key or dangling key logged: %q", line)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"":        LevelInfo,
		"Info":    LevelInfo,
		"warning": LevelWarn,
		"ERROR":   LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
