// Package wardenerr enumerates the error kinds from the error handling
// design (NATIVE_SETUP_FAILED, CONFIG_INVALID, ...) and wraps them with
// github.com/pkg/errors so call sites keep both a formatted message and a
// programmatically testable kind.
package wardenerr

import (
	"github.com/pkg/errors"
)

// Kind classifies a warden/PMSM-level failure.
type Kind int

const (
	// Unknown is the zero value; KindOf returns it for errors that were
	// never wrapped through this package.
	Unknown Kind = iota
	NativeSetupFailed
	ConfigInvalid
	NoChannel
	UnsupportedConfiguration
	DaemonDied
	InterfaceDownUnexpected
	InterfaceDestroyedUnexpected
	StartFailureGeneric
)

func (k Kind) String() string {
	switch k {
	case NativeSetupFailed:
		return "NATIVE_SETUP_FAILED"
	case ConfigInvalid:
		return "CONFIG_INVALID"
	case NoChannel:
		return "NO_CHANNEL"
	case UnsupportedConfiguration:
		return "UNSUPPORTED_CONFIGURATION"
	case DaemonDied:
		return "DAEMON_DIED"
	case InterfaceDownUnexpected:
		return "INTERFACE_DOWN_UNEXPECTED"
	case InterfaceDestroyedUnexpected:
		return "INTERFACE_DESTROYED_UNEXPECTED"
	case StartFailureGeneric:
		return "START_FAILURE_GENERIC"
	default:
		return "UNKNOWN"
	}
}

type wardenError struct {
	kind Kind
	err  error
}

func (e *wardenError) Error() string { return e.kind.String() + ": " + e.err.Error() }
func (e *wardenError) Unwrap() error { return e.err }
func (e *wardenError) Cause() error  { return e.err }

// New creates a new error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) error {
	return &wardenError{kind: kind, err: errors.Errorf(format, args...)}
}

// Wrap annotates err with a kind and a message, the way pkg/errors.Wrap
// annotates with just a message.
func Wrap(err error, kind Kind, message string) error {
	if err == nil {
		return nil
	}
	return &wardenError{kind: kind, err: errors.Wrap(err, message)}
}

// KindOf walks the error chain looking for a wardenerr-tagged cause,
// returning Unknown if none is found.
func KindOf(err error) Kind {
	for err != nil {
		if we, ok := err.(*wardenError); ok {
			return we.kind
		}
		cause, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = cause.Unwrap()
	}
	return Unknown
}

// Is reports whether err is (or wraps) an error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
