// Command welcome-trace prints the state transitions recorded by
// welcome-client or welcome-server when run with -trace.
//
// Usage:
//
//	welcome-trace [-session id] <file>
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chaz8081/gatt-welcome/internal/trace"
)

func main() {
	session := flag.String("session", "", "only show the session with this id (prefix match)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: welcome-trace [flags] <file>\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		flag.Usage()
		os.Exit(1)
	}

	events, err := trace.ReadFile(flag.Arg(0))
	if err != nil {
		// A partially written trace is still worth showing.
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	shown := printSessions(os.Stdout, trace.Sessions(events), *session)
	if shown == 0 {
		fmt.Fprintln(os.Stderr, "No sessions found")
		os.Exit(1)
	}
}

// printSessions writes one block per session and returns how many were
// written.
func printSessions(w io.Writer, sessions [][]trace.Event, filter string) int {
	shown := 0
	for _, events := range sessions {
		first := events[0]
		if filter != "" && !strings.HasPrefix(first.SessionID, filter) {
			continue
		}
		if shown > 0 {
			fmt.Fprintln(w)
		}
		shown++

		last := events[len(events)-1]
		fmt.Fprintf(w, "=== %s %s (%s) ===\n", first.Role, first.SessionID,
			last.Timestamp.Sub(first.Timestamp).Round(time.Millisecond))
		for _, ev := range events {
			offset := ev.Timestamp.Sub(first.Timestamp).Round(time.Millisecond)
			fmt.Fprintf(w, "  +%-8s %-15s -> %-15s %s", offset, ev.From, ev.To, ev.Reason)
			if ev.Peer != "" {
				fmt.Fprintf(w, " [%s]", ev.Peer)
			}
			fmt.Fprintln(w)
		}
	}
	return shown
}
