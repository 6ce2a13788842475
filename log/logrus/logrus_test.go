package logrus

import (
	"testing"

	"github.com/Neumenon/eson/eson"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestLogger_Levels(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	var l eson.Logger = New(base)

	l.Debug("d", eson.Fields{"path": "a/b"})
	l.Info("i", nil)
	l.Warn("w", eson.Fields{"n": 3})
	l.Error("e", nil)

	entries := hook.AllEntries()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	want := []logrus.Level{logrus.DebugLevel, logrus.InfoLevel, logrus.WarnLevel, logrus.ErrorLevel}
	for i, e := range entries {
		if e.Level != want[i] {
			t.Errorf("entry %d: level %s, want %s", i, e.Level, want[i])
		}
		if e.Data["component"] != "eson" {
			t.Errorf("entry %d: component = %v", i, e.Data["component"])
		}
	}
	if entries[0].Data["path"] != "a/b" || entries[2].Data["n"] != 3 {
		t.Errorf("fields lost: %v %v", entries[0].Data, entries[2].Data)
	}
	if entries[3].Message != "e" {
		t.Errorf("message = %q", entries[3].Message)
	}
}
