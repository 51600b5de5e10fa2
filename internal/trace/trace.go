// Package trace records handshake state transitions as a machine-readable
// event stream, separate from console logging. Traces are CBOR files that
// welcome-trace can print.
package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Event is one state transition of a session.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	Timestamp time.Time `cbor:"1,keyasint"`
	SessionID string    `cbor:"2,keyasint"`
	Role      string    `cbor:"3,keyasint"`
	From      string    `cbor:"4,keyasint"`
	To        string    `cbor:"5,keyasint"`
	Reason    string    `cbor:"6,keyasint,omitempty"`
	Peer      string    `cbor:"7,keyasint,omitempty"`
}

// Recorder receives transition events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Record(event Event)
}

// NoopRecorder discards all events.
type NoopRecorder struct{}

func (NoopRecorder) Record(Event) {}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("trace: cbor encoder mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyQuiet,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("trace: cbor decoder mode: %v", err))
	}
}

// FileRecorder appends events to a file.
type FileRecorder struct {
	mu      sync.Mutex
	file    *os.File
	encoder *cbor.Encoder
	closed  bool
}

// NewFileRecorder opens path for appending, creating it if necessary.
func NewFileRecorder(path string) (*FileRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("trace: open %s: %w", path, err)
	}
	return &FileRecorder{file: f, encoder: encMode.NewEncoder(f)}, nil
}

// Record writes an event. Encoding errors are dropped; tracing never
// affects the session.
func (r *FileRecorder) Record(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	_ = r.encoder.Encode(event)
}

// Close closes the file. It is safe to call more than once.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

// Read decodes every event from r.
func Read(r io.Reader) ([]Event, error) {
	dec := decMode.NewDecoder(r)
	var events []Event
	for {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return events, fmt.Errorf("trace: decode event %d: %w", len(events)+1, err)
		}
		events = append(events, ev)
	}
}

// ReadFile decodes every event in the file at path.
func ReadFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trace: open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Sessions groups events by session id, keeping sessions in order of first
// appearance.
func Sessions(events []Event) [][]Event {
	index := make(map[string]int)
	var out [][]Event
	for _, ev := range events {
		i, ok := index[ev.SessionID]
		if !ok {
			i = len(out)
			index[ev.SessionID] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], ev)
	}
	return out
}

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*FileRecorder)(nil)
)
