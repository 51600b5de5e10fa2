package handshake

// State is a step of the session state machine.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateConnecting
	StateCapabilityCheck
	StateSubscribing
	StateDispatching
	StateWaiting
	StateTeardown
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateScanning:
		return "Scanning"
	case StateConnecting:
		return "Connecting"
	case StateCapabilityCheck:
		return "CapabilityCheck"
	case StateSubscribing:
		return "Subscribing"
	case StateDispatching:
		return "Dispatching"
	case StateWaiting:
		return "Waiting"
	case StateTeardown:
		return "Teardown"
	case StateTerminal:
		return "Terminal"
	default:
		return "Unknown"
	}
}

// Role is the side of the exchange a session plays.
type Role string

const (
	RoleClient Role = "client"
	RoleServer Role = "server"
)

// Outcome is how a session ended.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTimeout
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "error"
	}
}
