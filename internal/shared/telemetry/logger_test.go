package telemetry

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInfoWritesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { Init("dev") })

	Info("document.verified", map[string]any{
		"file_id":  "f-1",
		"verified": true,
		"error":    errors.New("boom"),
	})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	got := entries[0].ContextMap()
	if got["file_id"] != "f-1" {
		t.Fatalf("unexpected file_id: %v", got["file_id"])
	}
	if got["verified"] != true {
		t.Fatalf("unexpected verified: %v", got["verified"])
	}
	if got["error"] != "boom" {
		t.Fatalf("unexpected error field: %v", got["error"])
	}
}

func TestLevelsRespectCore(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { Init("dev") })

	Debug("skipped", nil)
	Info("skipped", nil)
	Warn("kept", nil)
	Error("kept", nil)

	if n := logs.Len(); n != 2 {
		t.Fatalf("expected 2 entries at warn+, got %d", n)
	}
}
