// Package handshake drives one discovery-and-exchange session: scan, select
// a peer, connect, check capabilities, then either write the message (client)
// or subscribe and wait for it (server). Every exit path tears the
// connection down exactly once.
package handshake

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chaz8081/gatt-welcome/internal/ble"
	"github.com/chaz8081/gatt-welcome/internal/logging"
	"github.com/chaz8081/gatt-welcome/internal/trace"
)

// Options carries the collaborators shared by both roles.
type Options struct {
	Logger    *slog.Logger
	Recorder  trace.Recorder
	SessionID string // generated if empty
}

// session holds the state shared by one run of either role.
type session struct {
	id    string
	role  Role
	state State
	path  []State
	log   *slog.Logger
	rec   trace.Recorder

	conn       ble.Connection
	subscribed bool
	svcUUID    string
	charUUID   string

	res Result
}

func newSession(role Role, opts Options) *session {
	id := opts.SessionID
	if id == "" {
		id = uuid.New().String()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	rec := opts.Recorder
	if rec == nil {
		rec = trace.NoopRecorder{}
	}
	return &session{
		id:    id,
		role:  role,
		state: StateIdle,
		path:  []State{StateIdle},
		log:   log.With("role", string(role)),
		rec:   rec,
		res:   Result{SessionID: id, Role: role},
	}
}

// transition enters a new state, logging msg and recording the event.
func (s *session) transition(to State, msg string, attrs ...any) {
	from := s.state
	s.state = to
	s.path = append(s.path, to)
	s.log.Info(msg, append([]any{"state", to.String()}, attrs...)...)
	s.rec.Record(trace.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Role:      string(s.role),
		From:      from.String(),
		To:        to.String(),
		Reason:    msg,
		Peer:      s.res.Peer.Address,
	})
}

// own takes ownership of an open connection.
func (s *session) own(conn ble.Connection) {
	s.conn = conn
	s.res.Peer = conn.Peer()
}

// teardown releases the subscription and the connection. Failures are
// logged and never change the outcome.
func (s *session) teardown() {
	if s.conn == nil {
		return
	}
	s.transition(StateTeardown, "tearing down", "peer", s.res.Peer.Address)
	if s.subscribed {
		if err := s.conn.Unsubscribe(s.svcUUID, s.charUUID); err != nil {
			s.log.Warn("unsubscribe failed", "error", err)
		}
		s.subscribed = false
	}
	if err := s.conn.Disconnect(); err != nil {
		s.log.Warn("disconnect failed", "error", err)
	}
	s.conn = nil
}

// finish tears down and enters the terminal state.
func (s *session) finish(outcome Outcome) Result {
	s.teardown()
	s.res.Outcome = outcome
	s.transition(StateTerminal, "session finished", "outcome", outcome.String())
	s.res.Path = append([]State(nil), s.path...)
	return s.res
}

// fail ends the session with a categorized error.
func (s *session) fail(kind Kind, op string, err error) Result {
	s.res.Err = &Error{Kind: kind, Op: op, Err: err}
	s.log.Error(op+" failed", "kind", kind.String(), "error", err)
	return s.finish(OutcomeError)
}

// ok logs at the OK level.
func (s *session) ok(msg string, attrs ...any) {
	s.log.Log(context.Background(), logging.LevelOK, msg, attrs...)
}
