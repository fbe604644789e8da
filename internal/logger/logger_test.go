package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

// TestSetup_OutputsJSON はログがJSON形式で出力されることを検証する。
func TestSetup_OutputsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf)

	logger.Info("test message", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not valid JSON: %v", err)
	}

	if entry["msg"] != "test message" {
		t.Errorf("msg = %v, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want %q", entry["key"], "value")
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v, want %q", entry["level"], "INFO")
	}
}

// TestSetup_DebugLevelSuppressed はInfoレベル未満のログが出力されないことを検証する。
func TestSetup_DebugLevelSuppressed(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf)

	logger.Debug("debug message")

	if buf.Len() != 0 {
		t.Errorf("expected no output for debug level, got %q", buf.String())
	}
}
