package app

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger_WritesOneJSONLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	logger.Info("first", map[string]interface{}{"city": "Bogotá"})
	logger.Error("second", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var evt LogEvent
	if err := json.Unmarshal([]byte(lines[0]), &evt); err != nil {
		t.Fatalf("line 0 is not JSON: %v", err)
	}
	if evt.Level != "info" || evt.Message != "first" || evt.Fields["city"] != "Bogotá" {
		t.Fatalf("unexpected event: %+v", evt)
	}

	if err := json.Unmarshal([]byte(lines[1]), &evt); err != nil {
		t.Fatalf("line 1 is not JSON: %v", err)
	}
	if evt.Level != "error" {
		t.Fatalf("level = %q, want error", evt.Level)
	}
}

func TestLogger_WithStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf).With("dispatcher")

	logger.Info("request", nil)

	var evt LogEvent
	if err := json.Unmarshal(buf.Bytes(), &evt); err != nil {
		t.Fatal(err)
	}
	if evt.Component != "dispatcher" {
		t.Fatalf("component = %q, want dispatcher", evt.Component)
	}
}

func TestLogger_NilSafe(t *testing.T) {
	var logger *Logger
	logger.Info("ignored", nil) // must not panic

	NewLogger(nil).Error("also ignored", nil)
}
