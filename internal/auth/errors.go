package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrBiometryNotAvailable = errors.New("auth: biometric authentication not available")
	ErrAuthenticationFailed = errors.New("auth: authentication failed")
	ErrPasscodeNotSet       = errors.New("auth: no passcode set")
	ErrPasscodeTooShort     = errors.New("auth: passcode must be at least 6 digits")
	ErrPasscodeNotNumeric   = errors.New("auth: passcode must contain only digits")

	// ErrTooManyAttempts is the soft stop: cleared only by an explicit
	// recovery action, never by waiting.
	ErrTooManyAttempts = errors.New("auth: too many failed attempts")
)

// LockedError is the hard stop: all attempts are refused until the lock
// timestamp passes. Carries the remaining wait for countdown display.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("auth: temporarily locked, retry in %ds", int(e.Remaining.Seconds()+0.5))
}
