package auth

import "context"

// BiometricOutcome classifies a biometric challenge result. The platform
// bridge maps its native error codes onto these.
type BiometricOutcome int

const (
	// OutcomeSuccess: the user passed the challenge.
	OutcomeSuccess BiometricOutcome = iota
	// OutcomeFailed: wrong face/finger or user cancelled; counts as a plain
	// failed attempt.
	OutcomeFailed
	// OutcomeLockout: the platform reported biometric lockout; triggers the
	// timed lock.
	OutcomeLockout
	// OutcomeUnavailable: no enrolled biometrics or hardware missing; also
	// triggers the timed lock so the caller backs off to the passcode path.
	OutcomeUnavailable
)

// BiometricVerifier runs the platform biometric challenge. The prompt can
// take human-scale time; implementations must honor ctx cancellation.
type BiometricVerifier interface {
	Verify(ctx context.Context, reason string) (BiometricOutcome, error)
}
