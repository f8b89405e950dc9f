package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelWarn, Output: &buf})

	logger.Debug("hidden")
	logger.Info("also hidden")
	logger.Warn("shown", "irq", 7)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected debug/info to be filtered out, got: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown irq=7") {
		t.Fatalf("expected warn line with formatted args, got: %q", out)
	}
}

func TestDefaultLoggerIsSingleton(t *testing.T) {
	a := Default()
	b := Default()
	if a != b {
		t.Fatal("Default() should return the same instance across calls")
	}
}

func TestSetDefault(t *testing.T) {
	var buf bytes.Buffer
	custom := NewLogger(&Config{Level: LevelDebug, Output: &buf})
	SetDefault(custom)
	defer SetDefault(NewLogger(nil))

	Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "hello k=v") {
		t.Fatalf("expected global Info to use the custom default logger, got: %q", buf.String())
	}
}

func TestFormatArgsOddCountDropsTrailing(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})
	logger.Info("msg", "onlykey")
	if strings.Contains(buf.String(), "onlykey") {
		t.Fatalf("unpaired trailing key should be dropped, got: %q", buf.String())
	}
}
