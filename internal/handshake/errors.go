package handshake

import (
	"errors"
	"fmt"
)

// Kind classifies a session failure.
type Kind int

const (
	KindSetup Kind = iota + 1
	KindDiscovery
	KindConnect
	KindIntrospection
	KindWrite
	KindSubscribe
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindSetup:
		return "setup"
	case KindDiscovery:
		return "discovery"
	case KindConnect:
		return "connect"
	case KindIntrospection:
		return "introspection"
	case KindWrite:
		return "write"
	case KindSubscribe:
		return "subscribe"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ErrMissingAdapterAddress is returned when the server is started without
// the local adapter address.
var ErrMissingAdapterAddress = errors.New("handshake: local adapter address required")

// Error is a categorized session failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
