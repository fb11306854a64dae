package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Production(t *testing.T) {
	log, err := New(Config{Level: "info", Encoding: "json"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("Expected debug level to be disabled at info")
	}
}

func TestNew_DevelopmentDebug(t *testing.T) {
	log, err := New(Config{IsDevelopment: true, Level: "debug", Encoding: "console"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("Expected debug level to be enabled")
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("Expected error for invalid level")
	}
}
