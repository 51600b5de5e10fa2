package handshake

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chaz8081/gatt-welcome/internal/ble/protocol"
)

// rendezvous couples the transport's notification callback to the polling
// control goroutine. notify may run on any goroutine.
type rendezvous struct {
	expected string
	log      *slog.Logger

	received atomic.Bool
	count    atomic.Int64

	// mu guards payload; it is written before received is set.
	mu      sync.Mutex
	payload string
}

func newRendezvous(expected string, log *slog.Logger) *rendezvous {
	return &rendezvous{expected: expected, log: log}
}

// notify handles one notification. Only the first exact match of the
// expected text is kept; nothing un-sets the flag afterwards.
func (r *rendezvous) notify(data []byte) {
	n := r.count.Add(1)
	text, err := protocol.Decode(data)
	if err != nil {
		r.log.Warn("ignoring notification", "n", n, "error", err)
		return
	}
	r.log.Info("notification received", "n", n, "payload", text)
	if text != r.expected {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.received.Load() {
		return
	}
	r.payload = text
	r.received.Store(true)
}

// done reports whether the expected message has arrived.
func (r *rendezvous) done() bool {
	return r.received.Load()
}

// result returns the matched payload and the number of notifications seen.
func (r *rendezvous) result() (payload string, notifications int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payload, int(r.count.Load())
}

// wait polls every interval, at most polls times, for the expected message.
// It returns early with ctx's error if ctx ends.
func (r *rendezvous) wait(ctx context.Context, interval time.Duration, polls int) (bool, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; i < polls && !r.done(); i++ {
		select {
		case <-ctx.Done():
			return r.done(), ctx.Err()
		case <-ticker.C:
		}
	}
	return r.done(), nil
}
