package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"testing"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func plain(s string) string {
	return ansi.ReplaceAllString(s, "")
}

func TestJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)
	log.Info("model loaded", "model", "org/name")

	out := buf.String()
	if !strings.Contains(out, `"msg":"model loaded"`) {
		t.Fatalf("missing message: %s", out)
	}
	if !strings.Contains(out, `"model":"org/name"`) {
		t.Fatalf("missing attribute: %s", out)
	}
}

func TestJSONLevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelWarn)
	log.Info("dropped")
	log.Debug("dropped")
	if buf.Len() > 0 {
		t.Fatalf("expected no output below warn, got: %s", buf.String())
	}
	log.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("expected warn record, got: %s", buf.String())
	}
}

func TestWithAddsFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo).With("request_id", "abc")
	log.Info("handled")
	if !strings.Contains(buf.String(), `"request_id":"abc"`) {
		t.Fatalf("expected request_id field, got: %s", buf.String())
	}
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), JSON(&buf, slog.LevelInfo))
	FromContext(ctx).Info("via context")
	if !strings.Contains(buf.String(), "via context") {
		t.Fatalf("expected record from context logger, got: %s", buf.String())
	}
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext without logger returned nil")
	}
}

func TestForFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		want   string
	}{
		{"json", `"msg":"hello"`},
		{"text", "msg=hello"},
		{"pretty", "INF hello"},
		{"bogus", "msg=hello"},
	}
	for _, tc := range tests {
		var buf bytes.Buffer
		ForFormat(&buf, tc.format, "info").Info("hello")
		if got := plain(buf.String()); !strings.Contains(got, tc.want) {
			t.Errorf("ForFormat(%q) output %q, want substring %q", tc.format, got, tc.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := ParseLevel(tc.input); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestPrettyHandlerEnabled(t *testing.T) {
	t.Parallel()
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}

func TestPrettyHandlerAttrsAndGroups(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	base := NewPrettyHandler(&buf, nil)
	h := base.WithAttrs([]slog.Attr{slog.String("service", "finsent")}).WithGroup("http").WithGroup("req")
	slog.New(h).Info("served", "status", 200, "path", "/classify")

	out := plain(buf.String())
	for _, want := range []string{"service=finsent", "http.req.status=200", "http.req.path=/classify"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
	if base.WithGroup("") != base {
		t.Error("WithGroup(\"\") should return the receiver")
	}
}

func TestPrettyHandlerQuoting(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	slog.New(NewPrettyHandler(&buf, nil)).Error("inference failed",
		"err", errors.New("backend unavailable"),
		"model", "simple",
		"empty", "",
	)

	out := plain(buf.String())
	if !strings.Contains(out, `err="backend unavailable"`) {
		t.Errorf("expected quoted error, got %q", out)
	}
	if !strings.Contains(out, "model=simple") || strings.Contains(out, `model="simple"`) {
		t.Errorf("simple strings should not be quoted, got %q", out)
	}
	if !strings.Contains(out, `empty=""`) {
		t.Errorf("expected empty string marker, got %q", out)
	}
	if !strings.Contains(out, "ERR inference failed") {
		t.Errorf("expected level tag, got %q", out)
	}
}
