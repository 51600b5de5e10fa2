package handshake

import "github.com/chaz8081/gatt-welcome/internal/ble"

// Exit codes of the welcome commands.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitTimeout = 2
)

// WriteReport is the outcome of one characteristic write in the client
// fan-out.
type WriteReport struct {
	Service string
	Char    string
	Mode    ble.WriteMode
	Err     error
}

// Result describes a finished session.
type Result struct {
	SessionID string
	Role      Role
	Outcome   Outcome
	Err       error    // set when Outcome is OutcomeError
	Peer      ble.Peer // zero if no peer was selected
	Path      []State  // every state entered, in order

	Writes []WriteReport // client only

	Received      string // server: the matched payload
	Notifications int    // server: notifications seen before teardown
}

// ExitCode maps the outcome to a process exit code.
func (r Result) ExitCode() int {
	switch r.Outcome {
	case OutcomeSuccess:
		return ExitOK
	case OutcomeTimeout:
		return ExitTimeout
	default:
		return ExitFailure
	}
}

// FailedWrites returns the reports of writes that did not succeed.
func (r Result) FailedWrites() []WriteReport {
	var failed []WriteReport
	for _, w := range r.Writes {
		if w.Err != nil {
			failed = append(failed, w)
		}
	}
	return failed
}
