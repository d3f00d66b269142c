package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/keystore"
)

const (
	maxFailedAttempts     = 5
	biometricLockDuration = 60 * time.Second

	// DefaultAutoLockTimeout re-locks an idle session.
	DefaultAutoLockTimeout = 300 * time.Second

	minPasscodeLength = 6
)

// State is a read-only snapshot of the session, safe to hand to observers.
type State struct {
	Authenticated  bool
	FailedAttempts int
	LockedUntil    time.Time
	LastActivity   time.Time
}

// Service is the authentication and lockout state machine. Biometric and
// passcode verification share the same counters; both gate the same vault.
// All transient state is in memory and mutex-guarded so concurrent failed
// attempts never under-count.
type Service struct {
	store    keystore.Store
	verifier BiometricVerifier
	logger   *log.Logger

	now             func() time.Time
	autoLockTimeout time.Duration

	mu             sync.Mutex
	authenticated  bool
	failedAttempts int
	lockedUntil    time.Time
	lastActivity   time.Time
}

type Option func(*Service)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithAutoLockTimeout(d time.Duration) Option {
	return func(s *Service) { s.autoLockTimeout = d }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(store keystore.Store, verifier BiometricVerifier, opts ...Option) *Service {
	s := &Service{
		store:           store,
		verifier:        verifier,
		logger:          log.Default(),
		now:             time.Now,
		autoLockTimeout: DefaultAutoLockTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate runs a biometric challenge. Gate order is fixed: the time
// lock is checked before the attempt counter, so a user who is only over the
// attempt limit is never told they are time-locked, and vice versa.
func (s *Service) Authenticate(ctx context.Context, reason string) error {
	if err := s.gate(); err != nil {
		return err
	}
	if s.verifier == nil {
		return ErrBiometryNotAvailable
	}

	// The challenge blocks on the user; run it outside the lock.
	outcome, err := s.verifier.Verify(ctx, reason)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch outcome {
	case OutcomeSuccess:
		s.succeedLocked()
		return nil
	case OutcomeLockout, OutcomeUnavailable:
		s.failedAttempts++
		s.lockedUntil = s.now().Add(biometricLockDuration)
		s.logger.Printf("biometric lockout, attempts=%d", s.failedAttempts)
		return &LockedError{Remaining: biometricLockDuration}
	default:
		s.failedAttempts++
		s.logger.Printf("biometric attempt failed, attempts=%d", s.failedAttempts)
		return ErrAuthenticationFailed
	}
}

// VerifyPasscode compares the submitted code against the stored passcode.
// A plain mismatch returns (false, nil) and counts one failed attempt;
// lockout conditions return errors just like the biometric path.
func (s *Service) VerifyPasscode(code string) (bool, error) {
	if err := s.gate(); err != nil {
		return false, err
	}
	stored, err := s.store.Retrieve(keystore.SecretPasscode)
	if errors.Is(err, keystore.ErrSecretNotFound) {
		return false, ErrPasscodeNotSet
	}
	if err != nil {
		return false, err
	}

	ok := subtle.ConstantTimeCompare(stored, []byte(code)) == 1

	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.succeedLocked()
		return true, nil
	}
	s.failedAttempts++
	s.logger.Printf("passcode attempt failed, attempts=%d", s.failedAttempts)
	return false, nil
}

// gate applies the hard stop then the soft stop, clearing an expired time
// lock lazily. Order is load-bearing; see Authenticate.
func (s *Service) gate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lockedUntil.IsZero() {
		if remaining := s.lockedUntil.Sub(s.now()); remaining > 0 {
			return &LockedError{Remaining: remaining}
		}
		s.lockedUntil = time.Time{}
	}
	if s.failedAttempts >= maxFailedAttempts {
		return ErrTooManyAttempts
	}
	return nil
}

func (s *Service) succeedLocked() {
	s.authenticated = true
	s.failedAttempts = 0
	s.lockedUntil = time.Time{}
	s.lastActivity = s.now()
}

// SetPasscode stores a new passcode. The keystore provides confidentiality,
// so no separate hashing is applied.
func (s *Service) SetPasscode(code string) error {
	if len(code) < minPasscodeLength {
		return ErrPasscodeTooShort
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return ErrPasscodeNotNumeric
		}
	}
	return s.store.Save(keystore.SecretPasscode, []byte(code))
}

func (s *Service) RemovePasscode() error {
	return s.store.Delete(keystore.SecretPasscode)
}

// HasPasscode reports whether a passcode has been set.
func (s *Service) HasPasscode() bool {
	_, err := s.store.Retrieve(keystore.SecretPasscode)
	return err == nil
}

// IsCurrentlyLocked reports the hard time lock only. Expired locks clear
// lazily here, not via a background timer.
func (s *Service) IsCurrentlyLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lockedUntil.IsZero() {
		return false
	}
	if s.now().After(s.lockedUntil) {
		s.lockedUntil = time.Time{}
		return false
	}
	return true
}

// RemainingLockSeconds returns the countdown for display, zero when unlocked.
func (s *Service) RemainingLockSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lockedUntil.IsZero() {
		return 0
	}
	remaining := s.lockedUntil.Sub(s.now())
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds() + 0.5)
}

// ShouldAutoLock reports whether the session went stale. Checked lazily by
// callers before sensitive operations; not enforced proactively.
func (s *Service) ShouldAutoLock() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated && s.now().Sub(s.lastActivity) > s.autoLockTimeout
}

// Touch records user activity, pushing the auto-lock deadline out.
func (s *Service) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authenticated {
		s.lastActivity = s.now()
	}
}

// Lock ends the session immediately (user-initiated or auto-lock applied).
func (s *Service) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = false
}

// ResetFailedAttempts clears the soft stop. Only the account-recovery flow
// calls this; the counter never decays on its own.
func (s *Service) ResetFailedAttempts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedAttempts = 0
}

// IsAuthenticated reports the current session flag without touching it.
func (s *Service) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Snapshot returns a copy of the session state for read-only observers.
func (s *Service) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Authenticated:  s.authenticated,
		FailedAttempts: s.failedAttempts,
		LockedUntil:    s.lockedUntil,
		LastActivity:   s.lastActivity,
	}
}
