package zap

import (
	"errors"
	"testing"

	"github.com/Neumenon/eson/eson"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var l eson.Logger = New(zap.New(core))

	l.Debug("d", eson.Fields{"path": "core/datetime"})
	l.Info("i", nil)
	l.Warn("w", eson.Fields{"err": errors.New("boom")})
	l.Error("e", eson.Fields{"b": 2, "a": 1})

	entries := logs.All()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	wantLevels := []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != wantLevels[i] {
			t.Errorf("entry %d: level %s, want %s", i, e.Level, wantLevels[i])
		}
		if e.LoggerName != "eson" {
			t.Errorf("entry %d: logger name %q", i, e.LoggerName)
		}
	}

	if got := entries[0].ContextMap()["path"]; got != "core/datetime" {
		t.Errorf("path field = %v", got)
	}
	if got := entries[2].ContextMap()["err"]; got != "boom" {
		t.Errorf("err field = %v", got)
	}
	ctx := entries[3].Context
	if len(ctx) != 2 || ctx[0].Key != "a" || ctx[1].Key != "b" {
		t.Errorf("fields not in key order: %+v", ctx)
	}
}

func TestLogger_WithPackage(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	eson.SetLogger(New(zap.New(core)))
	defer eson.SetLogger(nil)

	reg := eson.NewRegistry()
	if err := reg.Register("app", eson.Namespace{}); err != nil {
		t.Fatal(err)
	}
	if logs.FilterMessage("eson: tag path registered").Len() != 1 {
		t.Errorf("registration not logged: %+v", logs.All())
	}
}

func TestNew_Nil(t *testing.T) {
	New(nil).Info("discarded", eson.Fields{"k": 1})
}
