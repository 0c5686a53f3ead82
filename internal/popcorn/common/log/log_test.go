package log

import (
	"testing"
)

type testLogger struct {
	entries []string
}

func (l *testLogger) Info(_ map[string]any, msg string)  { l.entries = append(l.entries, "INFO:"+msg) }
func (l *testLogger) Error(_ map[string]any, msg string) { l.entries = append(l.entries, "ERROR:"+msg) }
func (l *testLogger) Debug(_ map[string]any, msg string) { l.entries = append(l.entries, "DEBUG:"+msg) }
func (l *testLogger) Warn(_ map[string]any, msg string)  { l.entries = append(l.entries, "WARN:"+msg) }
func (l *testLogger) Panic(_ map[string]any, msg string) {}
func (l *testLogger) Fatal(_ map[string]any, msg string) {}

func TestActualZapLogger(t *testing.T) {
	Debug(map[string]any{
		"url":      "https://doubleclick.net/x",
		"verdict":  "blocked",
		"attached": true,
	}, "test debug")
	Info(nil, "test info")
	Warn(nil, "test warn")
	Error(nil, "test error")
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic, but none occurred")
		}
	}()
	GetLogger().Panic(nil, "test panic")
}

func TestSetLoggerAndGlobalLogging(t *testing.T) {
	orig := GetLogger()
	defer func() {
		SetLogger(orig)
	}()
	tlog := &testLogger{}
	SetLogger(tlog)

	Info(nil, "info msg")
	Error(nil, "error msg")
	Debug(nil, "debug msg")
	Warn(nil, "warn msg")

	expected := []string{
		"INFO:info msg",
		"ERROR:error msg",
		"DEBUG:debug msg",
		"WARN:warn msg",
	}

	if len(tlog.entries) != len(expected) {
		t.Fatalf("expected %d log entries, got %d", len(expected), len(tlog.entries))
	}
	for i, msg := range expected {
		if tlog.entries[i] != msg {
			t.Errorf("expected log[%d] = %q, got %q", i, msg, tlog.entries[i])
		}
	}
}

func TestConfigure_ValidLevels(t *testing.T) {
	orig := GetLogger()
	defer func() {
		SetLogger(orig)
	}()

	for _, env := range []string{"dev", "prod"} {
		for _, lvl := range []string{"debug", "info", "WARN", "error"} {
			if err := Configure(env, lvl); err != nil {
				t.Errorf("Configure(%q, %q) unexpected error: %v", env, lvl, err)
			}
		}
	}
}

func TestConfigure_InvalidLevel(t *testing.T) {
	orig := GetLogger()
	defer func() {
		SetLogger(orig)
	}()

	if err := Configure("dev", "notalevel"); err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
}

func TestNoopLogger_AllLevels(t *testing.T) {
	orig := GetLogger()
	defer func() {
		SetLogger(orig)
	}()
	SetLogger(NewNoopLogger())

	Debug(nil, "debug message")
	Info(nil, "info message")
	Warn(nil, "warn message")
	Error(nil, "error message")
	GetLogger().Panic(nil, "panic message")
	Fatal(nil, "fatal message")
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Info(map[string]any{"k": 1}, "blocked")
	r.Warn(nil, "skipped")
	r.Panic(nil, "would panic")
	r.Fatal(nil, "would exit")

	entries := r.Entries()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	if entries[0].Fields["k"] != 1 {
		t.Errorf("fields not kept: %+v", entries[0])
	}
	if !r.Has("warn", "skipped") {
		t.Errorf("Has(warn, skipped) = false")
	}
	if r.Has("info", "skipped") {
		t.Errorf("Has(info, skipped) = true, level must match")
	}

	// returned slice is a copy
	entries[0].Msg = "mutated"
	if r.Entries()[0].Msg != "blocked" {
		t.Errorf("Entries must return a copy")
	}
}
