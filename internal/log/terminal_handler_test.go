package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newTestHandler(buf *bytes.Buffer, level slog.Level) *prettyHandler {
	return newPrettyHandler(buf, &slog.HandlerOptions{Level: level})
}

func TestPrettyHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTestHandler(&buf, slog.LevelDebug))

	logger.Info("server started", "port", 8080)

	out := buf.String()
	if !strings.Contains(out, "INF") {
		t.Errorf("expected INF tag in output: %q", out)
	}
	if !strings.Contains(out, "server started") {
		t.Errorf("expected message in output: %q", out)
	}
	if !strings.Contains(out, "port=") || !strings.Contains(out, "8080") {
		t.Errorf("expected port attribute in output: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("output should end with newline")
	}
}

func TestPrettyHandler_LevelTags(t *testing.T) {
	tests := []struct {
		level slog.Level
		tag   string
		color string
	}{
		{slog.LevelDebug, "DBG", colorCyan},
		{slog.LevelInfo, "INF", colorGreen},
		{slog.LevelWarn, "WRN", colorYellow},
		{slog.LevelError, "ERR", colorRed},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		logger := slog.New(newTestHandler(&buf, slog.LevelDebug))
		logger.Log(context.Background(), tt.level, "msg")

		out := buf.String()
		if !strings.Contains(out, tt.tag) {
			t.Errorf("level %v: expected tag %s in %q", tt.level, tt.tag, out)
		}
		if !strings.Contains(out, tt.color) {
			t.Errorf("level %v: expected color code in %q", tt.level, out)
		}
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h := newTestHandler(&bytes.Buffer{}, slog.LevelWarn)

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at WARN level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at WARN level")
	}
}

func TestPrettyHandler_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTestHandler(&buf, slog.LevelWarn))

	logger.Info("quiet")
	logger.Error("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Error("info record should have been filtered")
	}
	if !strings.Contains(out, "loud") {
		t.Error("error record should have been written")
	}
}

func TestPrettyHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := newTestHandler(&buf, slog.LevelDebug)
	logger := slog.New(base.WithAttrs([]slog.Attr{slog.String("service", "murmur")}))

	logger.Info("hello")

	if !strings.Contains(buf.String(), "service=") {
		t.Errorf("expected bound attribute in output: %q", buf.String())
	}

	// The original handler must not pick up the bound attribute.
	buf.Reset()
	slog.New(base).Info("hello")
	if strings.Contains(buf.String(), "service=") {
		t.Error("WithAttrs must not mutate the receiver")
	}
}

func TestPrettyHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	base := newTestHandler(&buf, slog.LevelDebug)
	logger := slog.New(base.WithGroup("req"))

	logger.Info("handled", "method", "GET")

	if !strings.Contains(buf.String(), "req.method=") {
		t.Errorf("expected dotted group prefix in output: %q", buf.String())
	}
}

func TestPrettyHandler_EmptyGroupIsNoop(t *testing.T) {
	h := newTestHandler(&bytes.Buffer{}, slog.LevelDebug)
	if h.WithGroup("") != slog.Handler(h) {
		t.Error("empty group should return the same handler")
	}
}

func TestPrettyHandler_GroupAttr(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTestHandler(&buf, slog.LevelDebug))

	logger.Info("handled", slog.Group("db", slog.String("dialect", "sqlite")))

	if !strings.Contains(buf.String(), "db.dialect=") {
		t.Errorf("expected flattened group attribute in output: %q", buf.String())
	}
}

func TestPrettyHandler_QuotesStringsWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTestHandler(&buf, slog.LevelDebug))

	logger.Info("saved", "name", "Weekly standup")

	if !strings.Contains(buf.String(), `"Weekly standup"`) {
		t.Errorf("expected quoted value in output: %q", buf.String())
	}
}

func TestPrettyHandler_DefaultLevel(t *testing.T) {
	h := newPrettyHandler(&bytes.Buffer{}, nil)
	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("default level should enable INFO")
	}
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("default level should disable DEBUG")
	}
}
