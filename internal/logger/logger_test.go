package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWithSinkWritesJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := newWithSink(Config{Level: "info", Format: "json"}, zapcore.AddSync(&buf))
	if err != nil {
		t.Fatalf("newWithSink returned error: %v", err)
	}

	log.Named("executor").Info("job finished", zap.String("verdict", "accepted"))
	log.Debug("dropped")
	_ = log.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected a single entry below debug, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("entry is not JSON: %v", err)
	}
	if entry["msg"] != "job finished" || entry["logger"] != "executor" || entry["verdict"] != "accepted" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", entry["level"])
	}
}

func TestNewWithSinkConsoleFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := newWithSink(Config{Level: "DEBUG", Format: "console"}, zapcore.AddSync(&buf))
	if err != nil {
		t.Fatalf("newWithSink returned error: %v", err)
	}

	log.Debug("sandbox ready")
	_ = log.Sync()

	if !strings.Contains(buf.String(), "DEBUG") || !strings.Contains(buf.String(), "sandbox ready") {
		t.Fatalf("unexpected console output %q", buf.String())
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "level", cfg: Config{Level: "loud"}},
		{name: "format", cfg: Config{Format: "xml"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tt.cfg); err == nil {
				t.Fatalf("expected error for %+v", tt.cfg)
			}
		})
	}
}

func TestNewWritesToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "judge.log")
	log, err := New(Config{OutputPath: path})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	log.Warn("reaped orphaned sandbox")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "reaped orphaned sandbox") {
		t.Fatalf("expected entry in log file, got %q", data)
	}
}
