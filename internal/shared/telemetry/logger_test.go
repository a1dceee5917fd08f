package telemetry

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFieldsAreForwarded(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger()
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(prev) })

	Error("backend.call", map[string]any{
		"op":    "chat",
		"error": errors.New("boom"),
	})
	Info("request.complete", nil)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	first := entries[0]
	if first.Message != "backend.call" || first.Level != zapcore.ErrorLevel {
		t.Fatalf("unexpected entry: %+v", first.Entry)
	}
	ctx := first.ContextMap()
	if ctx["op"] != "chat" {
		t.Fatalf("expected op field, got %v", ctx)
	}
	if ctx["error"] != "boom" {
		t.Fatalf("expected error field, got %v", ctx["error"])
	}
}

func TestSetLoggerNilFallsBackToNop(t *testing.T) {
	prev := Logger()
	SetLogger(nil)
	t.Cleanup(func() { SetLogger(prev) })

	Warn("ignored", map[string]any{"k": "v"})
	if Logger() == nil {
		t.Fatalf("expected non-nil logger")
	}
}
