package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(level slog.Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{
		Component: ComponentApp,
		Handler:   slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level}),
	}), &buf
}

func TestLoggerTagsComponentOnce(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)

	logger.WithComponent(ComponentHTTP).Info("hello", FieldPath, "/")
	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=http") {
		t.Errorf("record = %q", out)
	}

	buf.Reset()
	logger.Info("explicit", NewFields().WithComponent(ComponentTransaction).ToSlice()...)
	out = buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=transaction") {
		t.Errorf("explicit component record = %q", out)
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelWarn)
	logger.Info("dropped")
	logger.Debug("dropped")
	if buf.Len() != 0 {
		t.Errorf("info written at warn level: %q", buf.String())
	}
	logger.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Error("warn not written")
	}
}

func TestContextLogger(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)
	ctx := NewContext(context.Background(), logger.With(FieldRequestID, "abc"))

	FromContext(ctx).InfoContext(ctx, "scoped")
	if !strings.Contains(buf.String(), "request_id=abc") {
		t.Errorf("record = %q", buf.String())
	}
	if got := FromContext(context.Background()).Component(); got != "unknown" {
		t.Errorf("fallback component = %q", got)
	}
}

func TestStructuredLoggerHTTPEndLevel(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)
	sl := NewStructuredLogger(logger)
	req := httptest.NewRequest("GET", "/readyz", nil)

	sl.LogHTTPEnd(context.Background(), req, 503, 12, "10.0.0.1")
	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "status_code=503") {
		t.Errorf("record = %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
