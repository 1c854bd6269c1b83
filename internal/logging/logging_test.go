package logging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestNewWritesToRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mediakit.log")

	logger, err := New(Config{Level: "debug", Format: "json", OutputPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hello", String("component", "test"))
	if err := logger.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"component":"test"`) {
		t.Errorf("log output missing field: %s", data)
	}
}

func TestNewInvalidLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "level.log")
	logger, err := New(Config{Level: "loud", OutputPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown")
	logger.Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "hidden") {
		t.Error("debug entry written at info level")
	}
	if !strings.Contains(string(data), "shown") {
		t.Error("info entry missing")
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")
	if got := GetRequestID(ctx); got != "req-42" {
		t.Errorf("GetRequestID = %q, want req-42", got)
	}
	if WithContext(ctx) == L() {
		t.Error("expected a request-scoped logger")
	}
	if GetRequestID(context.Background()) != "" {
		t.Error("empty context should have no request ID")
	}
}

func TestNewLeavesGlobalLevelAlone(t *testing.T) {
	before := globalLevel.Level()
	t.Cleanup(func() { globalLevel.SetLevel(before) })

	globalLevel.SetLevel(zapcore.WarnLevel)
	if _, err := New(Config{Level: "debug", OutputPath: filepath.Join(t.TempDir(), "a.log")}); err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := globalLevel.Level(); got != zapcore.WarnLevel {
		t.Errorf("global level = %v after New, want warn", got)
	}
}

func TestSetLevelAppliesToInitLogger(t *testing.T) {
	prevLogger, prevLevel := globalLogger, globalLevel.Level()
	t.Cleanup(func() {
		globalLogger = prevLogger
		globalLevel.SetLevel(prevLevel)
	})

	path := filepath.Join(t.TempDir(), "global.log")
	if err := Init(Config{Level: "info", Format: "json", OutputPath: path}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Debug("before")
	SetLevel("debug")
	Debug("after", Int("n", 3), Int64("size", 1<<40), Duration("took", 2*time.Second))
	Error("failed", Err(errors.New("boom")))
	SetLevel("nonsense")
	Debug("still debug")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if strings.Contains(out, `"before"`) {
		t.Error("debug entry written before SetLevel")
	}
	for _, want := range []string{`"after"`, `"n":3`, `"size":1099511627776`, `"took":2`, `"error":"boom"`, `"still debug"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}
