package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/chaz8081/gatt-welcome/internal/trace"
)

func TestPrintSessions(t *testing.T) {
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	events := []trace.Event{
		{Timestamp: t0, SessionID: "aaaa-1", Role: "server", From: "Idle", To: "Scanning", Reason: "scanning for peripherals"},
		{Timestamp: t0.Add(time.Second), SessionID: "bbbb-2", Role: "client", From: "Idle", To: "Scanning", Reason: "scanning for server"},
		{Timestamp: t0.Add(5 * time.Second), SessionID: "aaaa-1", Role: "server", From: "Scanning", To: "Connecting", Reason: "connecting", Peer: "AA:BB:CC:DD:EE:FF"},
	}

	var out bytes.Buffer
	n := printSessions(&out, trace.Sessions(events), "")
	if n != 2 {
		t.Fatalf("printSessions() = %d, want 2", n)
	}

	got := out.String()
	for _, want := range []string{
		"=== server aaaa-1 (5s) ===",
		"=== client bbbb-2 (0s) ===",
		"Scanning        -> Connecting      connecting [AA:BB:CC:DD:EE:FF]",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Index(got, "aaaa-1") > strings.Index(got, "bbbb-2") {
		t.Error("sessions must keep order of first appearance")
	}
}

func TestPrintSessionsFilter(t *testing.T) {
	events := []trace.Event{
		{SessionID: "aaaa-1", Role: "server", From: "Idle", To: "Scanning"},
		{SessionID: "bbbb-2", Role: "client", From: "Idle", To: "Scanning"},
	}

	var out bytes.Buffer
	if n := printSessions(&out, trace.Sessions(events), "bbbb"); n != 1 {
		t.Fatalf("printSessions() = %d, want 1", n)
	}
	if strings.Contains(out.String(), "aaaa-1") {
		t.Errorf("filtered session shown:\n%s", out.String())
	}

	out.Reset()
	if n := printSessions(&out, trace.Sessions(events), "zzzz"); n != 0 {
		t.Errorf("printSessions() = %d, want 0", n)
	}
}
