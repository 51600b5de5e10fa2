package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chaz8081/gatt-welcome/internal/trace"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSetupFromFile(t *testing.T) {
	path := writeConfig(t, `
client:
  target_address: "aa:bb:cc:00:11:22"
log_level: debug
`)
	var out bytes.Buffer
	cfg, log, err := Setup(&out, path, "")
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	if cfg.Client.TargetAddress != "AA:BB:CC:00:11:22" {
		t.Errorf("TargetAddress = %q, want normalized address", cfg.Client.TargetAddress)
	}
	if log == nil {
		t.Fatal("Setup() returned nil logger")
	}
	if !strings.Contains(out.String(), "[DEBUG] config loaded source="+path) {
		t.Errorf("missing config source line, got %q", out.String())
	}
}

func TestSetupTraceOverride(t *testing.T) {
	path := writeConfig(t, "trace_path: /tmp/from-config.trace\n")
	cfg, _, err := Setup(&bytes.Buffer{}, path, "/tmp/from-flag.trace")
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	if cfg.TracePath != "/tmp/from-flag.trace" {
		t.Errorf("TracePath = %q, want flag value", cfg.TracePath)
	}
}

func TestSetupInvalidConfig(t *testing.T) {
	path := writeConfig(t, "protocol:\n  service_uuid: not-a-uuid\n")
	_, _, err := Setup(&bytes.Buffer{}, path, "")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "config validation") {
		t.Errorf("error = %v, want config validation error", err)
	}
}

func TestSetupMissingFile(t *testing.T) {
	_, _, err := Setup(&bytes.Buffer{}, filepath.Join(t.TempDir(), "missing.yaml"), "")
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestOpenTraceEmptyPath(t *testing.T) {
	rec, closeFn, err := OpenTrace("")
	if err != nil {
		t.Fatalf("OpenTrace() error: %v", err)
	}
	if _, ok := rec.(trace.NoopRecorder); !ok {
		t.Errorf("recorder = %T, want trace.NoopRecorder", rec)
	}
	if err := closeFn(); err != nil {
		t.Errorf("close error: %v", err)
	}
}

func TestOpenTraceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.trace")
	rec, closeFn, err := OpenTrace(path)
	if err != nil {
		t.Fatalf("OpenTrace() error: %v", err)
	}
	rec.Record(trace.Event{Timestamp: time.Now(), SessionID: "s1", Role: "client", From: "Idle", To: "Scanning"})
	if err := closeFn(); err != nil {
		t.Fatalf("close error: %v", err)
	}

	events, err := trace.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if len(events) != 1 || events[0].To != "Scanning" {
		t.Errorf("events = %+v, want one Scanning event", events)
	}
}
