package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestHandlerPrefixesSeverity(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelDebug)

	logger.Debug("probe")
	logger.Info("scanning", "duration", 5*time.Second)
	logger.Log(context.Background(), LevelOK, "received expected message")
	logger.Warn("timeout waiting for message")
	logger.Error("write failed", "error", errors.New("boom"))
	logger.Log(context.Background(), LevelFatal, "no adapter")

	want := []string{
		"[DEBUG] probe",
		"[INFO] scanning duration=5s",
		"[OK] received expected message",
		"[WARN] timeout waiting for message",
		"[ERROR] write failed error=boom",
		"[FATAL] no adapter",
	}
	got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(got), len(want), buf.String())
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHandlerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Log(context.Background(), LevelOK, "hidden too")
	logger.Warn("shown")

	if got := buf.String(); got != "[WARN] shown\n" {
		t.Errorf("output = %q, want only the warning", got)
	}
}

func TestHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo)

	logger.Info("rx", "payload", "Hello from client!", "empty", "")

	want := `[INFO] rx payload="Hello from client!" empty=""` + "\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo).With("role", "server").WithGroup("peer")

	logger.Info("connected", "addr", "AA:BB:CC:DD:EE:FF", slog.Group("rssi", "dbm", -40))

	want := "[INFO] connected role=server peer.addr=AA:BB:CC:DD:EE:FF peer.rssi.dbm=-40\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelName(t *testing.T) {
	if LevelName(LevelOK) != "OK" {
		t.Errorf("LevelName(LevelOK) = %q", LevelName(LevelOK))
	}
	if LevelName(LevelFatal) != "FATAL" {
		t.Errorf("LevelName(LevelFatal) = %q", LevelName(LevelFatal))
	}
}
