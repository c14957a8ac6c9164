package log

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug": DebugLevel,
		"info":  InfoLevel,
		"WARN":  WarnLevel,
		"error": ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: want %v got %v", in, want, got)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestTextFormatterFieldsSorted(t *testing.T) {
	f := &TextFormatter{}
	b, err := f.Format(&Entry{
		Level:     InfoLevel,
		Message:   "hello",
		Fields:    map[string]any{"b": 2, "a": 1},
		Timestamp: time.Unix(0, 0),
	})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	line := string(b)
	if !strings.Contains(line, "hello") || !strings.Contains(line, "a=1 b=2") {
		t.Fatalf("unexpected line: %q", line)
	}
}

func TestLoggerLevelGate(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithLevel(WarnLevel), WithOutput(NewWriterOutput(&buf)))
	l.Info("quiet")
	l.Warn("loud", Str("k", "v"))
	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Fatalf("info should be gated: %q", out)
	}
	if !strings.Contains(out, "loud") || !strings.Contains(out, "k=v") {
		t.Fatalf("warn missing: %q", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(NewWriterOutput(&buf)))
	l.WithComponent("bus").Info("ready")
	if !strings.Contains(buf.String(), "component=bus") {
		t.Fatalf("component field missing: %q", buf.String())
	}
}

func TestApplyConfigJSONFormat(t *testing.T) {
	l, err := ApplyConfig(&Config{Level: "error", Format: "json"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if l.GetLevel() != ErrorLevel {
		t.Fatalf("level: %v", l.GetLevel())
	}
	if _, err := ApplyConfig(&Config{Format: "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
