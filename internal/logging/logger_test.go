package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:      LevelDebug,
		Output:     &buf,
		JSON:       true,
		TimeFormat: time.RFC3339,
	})

	t.Run("Levels", func(t *testing.T) {
		buf.Reset()
		logger.Debug("debug msg")
		if !strings.Contains(buf.String(), "debug msg") {
			t.Error("debug logging failed")
		}

		buf.Reset()
		logger.Warn("warn msg")
		if !strings.Contains(buf.String(), "warn msg") {
			t.Error("warn logging failed")
		}
	})

	t.Run("DynamicLevel", func(t *testing.T) {
		logger.SetLevel(LevelError)
		defer logger.SetLevel(LevelDebug)
		if logger.GetLevel() != LevelError {
			t.Error("SetLevel failed")
		}

		buf.Reset()
		logger.Info("should not appear")
		if buf.Len() > 0 {
			t.Errorf("info logged at error level: %s", buf.String())
		}
	})

	t.Run("Component", func(t *testing.T) {
		buf.Reset()
		logger.WithComponent("sweeper").Info("cycle done", "revoked", 2)

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if entry["component"] != "sweeper" {
			t.Errorf("component = %v, want sweeper", entry["component"])
		}
		if entry["revoked"] != float64(2) {
			t.Errorf("revoked = %v, want 2", entry["revoked"])
		}
	})

	t.Run("WithFields", func(t *testing.T) {
		buf.Reset()
		logger.WithFields(map[string]any{"op": "abc"}).Info("source added")
		out := buf.String()
		if !strings.Contains(out, `"op":"abc"`) {
			t.Errorf("entry missing field: %s", out)
		}
	})
}

func TestConsoleHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Output: &buf})

	logger.WithComponent("Gateway").Warn("reload failed", "zone", "public", "output", "not running")

	line := buf.String()
	for _, want := range []string{"[warn]", "gateway: reload failed", "zone=public", `output="not running"`} {
		if !strings.Contains(line, want) {
			t.Errorf("console line %q missing %q", line, want)
		}
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("nothing to see")
	if l.GetLevel() <= LevelError {
		t.Error("Discard logger should be above error level")
	}
}
