package spot

import (
	"errors"
	"fmt"
)

var (
	ErrNoPriceHistory     = errors.New("spot price history unavailable")
	ErrBidsExhausted      = errors.New("spot bids exhausted")
	ErrFatalStatus        = errors.New("spot request reached a fatal status")
	ErrNoRequestRecorded  = errors.New("no spot request recorded")
	ErrNoInstanceRecorded = errors.New("no instance recorded")
)

// NonRecoverableError marks failures that must not be retried by the caller
type NonRecoverableError struct {
	Op  string
	Err error
}

func (e *NonRecoverableError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NonRecoverableError) Unwrap() error {
	return e.Err
}

func nonRecoverable(op string, err error) error {
	return &NonRecoverableError{Op: op, Err: err}
}

// IsNonRecoverable reports whether err, or any error it wraps, is a NonRecoverableError
func IsNonRecoverable(err error) bool {
	var nr *NonRecoverableError
	return errors.As(err, &nr)
}
