package trace

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFileRecorderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.trace")
	rec, err := NewFileRecorder(path)
	if err != nil {
		t.Fatalf("NewFileRecorder() error = %v", err)
	}

	ts := time.Date(2026, 10, 14, 9, 30, 0, 123456789, time.UTC)
	rec.Record(Event{Timestamp: ts, SessionID: "s1", Role: "server", From: "Idle", To: "Scanning"})
	rec.Record(Event{Timestamp: ts.Add(time.Second), SessionID: "s1", Role: "server", From: "Scanning", To: "Connecting", Peer: "AA:BB:CC:DD:EE:FF"})
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	events, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if !events[0].Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v (nanosecond precision)", events[0].Timestamp, ts)
	}
	if events[1].From != "Scanning" || events[1].To != "Connecting" {
		t.Errorf("events[1] = %+v", events[1])
	}
	if events[1].Peer != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("Peer = %q", events[1].Peer)
	}
}

func TestFileRecorderAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.trace")
	for i := 0; i < 2; i++ {
		rec, err := NewFileRecorder(path)
		if err != nil {
			t.Fatalf("NewFileRecorder() error = %v", err)
		}
		rec.Record(Event{SessionID: "s", From: "Idle", To: "Scanning"})
		rec.Close()
	}

	events, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(events) != 2 {
		t.Errorf("got %d events, want 2", len(events))
	}
}

func TestFileRecorderCloseTwiceAndRecordAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.trace")
	rec, err := NewFileRecorder(path)
	if err != nil {
		t.Fatalf("NewFileRecorder() error = %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	rec.Record(Event{SessionID: "late"})

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("file size = %d, want 0", info.Size())
	}
}

func TestFileRecorderConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.trace")
	rec, err := NewFileRecorder(path)
	if err != nil {
		t.Fatalf("NewFileRecorder() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Record(Event{SessionID: "s", From: "Waiting", To: "Waiting", Reason: "notification"})
		}()
	}
	wg.Wait()
	rec.Close()

	events, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(events) != 20 {
		t.Errorf("got %d events, want 20", len(events))
	}
}

func TestReadTruncated(t *testing.T) {
	var buf bytes.Buffer
	enc := encMode.NewEncoder(&buf)
	if err := enc.Encode(Event{SessionID: "s", From: "Idle", To: "Scanning"}); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	data := buf.Bytes()
	data = append(data, data[:len(data)/2]...)

	events, err := Read(bytes.NewReader(data))
	if err == nil {
		t.Fatal("Read() should fail on a truncated event")
	}
	if len(events) != 1 {
		t.Errorf("got %d events before the error, want 1", len(events))
	}
}

func TestSessions(t *testing.T) {
	events := []Event{
		{SessionID: "a", To: "Scanning"},
		{SessionID: "b", To: "Scanning"},
		{SessionID: "a", To: "Connecting"},
	}
	sessions := Sessions(events)
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if len(sessions[0]) != 2 || sessions[0][1].To != "Connecting" {
		t.Errorf("sessions[0] = %+v", sessions[0])
	}
	if len(sessions[1]) != 1 || sessions[1][0].SessionID != "b" {
		t.Errorf("sessions[1] = %+v", sessions[1])
	}
}
