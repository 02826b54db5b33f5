package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the farmer domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running interpreter.
	ErrAlreadyRunning = errors.New("farmer: already running")

	// ErrNotRunning is returned when events are sent to an interpreter that is not running.
	ErrNotRunning = errors.New("farmer: not running")

	// ErrAlreadyStopped is returned when Start() is called after Stop().
	ErrAlreadyStopped = errors.New("farmer: already stopped")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("farmer: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("farmer: invalid configuration")

	// ErrInternalEvent is returned when an invocation outcome is sent from outside the interpreter.
	ErrInternalEvent = errors.New("farmer: internal event")

	// ErrMissingCharity is returned when a farm is created without a donation target.
	ErrMissingCharity = errors.New("farmer: missing charity")

	// ErrNoFarm is returned when an operation needs a farm that does not exist.
	ErrNoFarm = errors.New("farmer: no farm")
)

// LedgerError is a failure reported by the remote ledger or its transport.
type LedgerError struct {
	Code ErrorCode
	Op   string
	Err  error
}

func (e *LedgerError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *LedgerError) Unwrap() error { return e.Err }

// CodeOf extracts the error code carried by err. Errors without a code
// contribute their message, so callers always get a displayable reason.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeNone
	}
	var le *LedgerError
	if errors.As(err, &le) && le.Code != ErrCodeNone {
		return le.Code
	}
	return ErrorCode(err.Error())
}
