package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/keystore"
)

type fakeVerifier struct {
	outcome BiometricOutcome
	err     error
	calls   int
}

func (f *fakeVerifier) Verify(context.Context, string) (BiometricOutcome, error) {
	f.calls++
	return f.outcome, f.err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T, verifier BiometricVerifier) (*Service, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)}
	svc := NewService(keystore.NewMemoryStore(), verifier, WithClock(clock.Now))
	return svc, clock
}

func TestSetAndVerifyPasscode(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if err := svc.SetPasscode("123456"); err != nil {
		t.Fatalf("set passcode: %v", err)
	}

	ok, err := svc.VerifyPasscode("123456")
	if err != nil || !ok {
		t.Fatalf("verify correct passcode: ok=%v err=%v", ok, err)
	}
	if got := svc.Snapshot().FailedAttempts; got != 0 {
		t.Fatalf("failedAttempts=%d after success, want 0", got)
	}

	ok, err = svc.VerifyPasscode("000000")
	if err != nil {
		t.Fatalf("verify wrong passcode: %v", err)
	}
	if ok {
		t.Fatal("wrong passcode accepted")
	}
	if got := svc.Snapshot().FailedAttempts; got != 1 {
		t.Fatalf("failedAttempts=%d after one failure, want 1", got)
	}
}

func TestPasscodeValidation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if err := svc.SetPasscode("12345"); !errors.Is(err, ErrPasscodeTooShort) {
		t.Fatalf("short passcode: %v", err)
	}
	if err := svc.SetPasscode("12345a"); !errors.Is(err, ErrPasscodeNotNumeric) {
		t.Fatalf("non-numeric passcode: %v", err)
	}
	if _, err := svc.VerifyPasscode("123456"); !errors.Is(err, ErrPasscodeNotSet) {
		t.Fatalf("verify without passcode: %v", err)
	}
}

func TestTooManyAttemptsRequiresExplicitReset(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if err := svc.SetPasscode("123456"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < maxFailedAttempts; i++ {
		if _, err := svc.VerifyPasscode("999999"); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	// Even the correct code is refused now.
	if _, err := svc.VerifyPasscode("123456"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}

	svc.ResetFailedAttempts()
	ok, err := svc.VerifyPasscode("123456")
	if err != nil || !ok {
		t.Fatalf("after reset: ok=%v err=%v", ok, err)
	}
}

func TestTimeLockCheckedBeforeAttemptCounter(t *testing.T) {
	svc, clock := newTestService(t, &fakeVerifier{outcome: OutcomeLockout})
	if err := svc.SetPasscode("123456"); err != nil {
		t.Fatal(err)
	}

	// Drive the counter to the limit with wrong passcodes.
	for i := 0; i < maxFailedAttempts-1; i++ {
		if _, err := svc.VerifyPasscode("999999"); err != nil {
			t.Fatal(err)
		}
	}
	// Fifth failure comes from a biometric lockout, which also arms the
	// time lock.
	err := svc.Authenticate(context.Background(), "unlock vault")
	var le *LockedError
	if !errors.As(err, &le) {
		t.Fatalf("expected LockedError, got %v", err)
	}
	snap := svc.Snapshot()
	if snap.FailedAttempts != maxFailedAttempts {
		t.Fatalf("failedAttempts=%d, want %d", snap.FailedAttempts, maxFailedAttempts)
	}
	if snap.LockedUntil.IsZero() {
		t.Fatal("time lock not armed")
	}

	// Both stops are active. The time lock must win.
	_, err = svc.VerifyPasscode("123456")
	if !errors.As(err, &le) {
		t.Fatalf("time lock must be reported first, got %v", err)
	}

	// Once the lock expires, the counter is the remaining stop.
	clock.Advance(biometricLockDuration + time.Second)
	if _, err := svc.VerifyPasscode("123456"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts after lock expiry, got %v", err)
	}
}

func TestLockExpiryIsLazy(t *testing.T) {
	svc, clock := newTestService(t, &fakeVerifier{outcome: OutcomeUnavailable})
	if err := svc.SetPasscode("123456"); err != nil {
		t.Fatal(err)
	}

	if err := svc.Authenticate(context.Background(), "unlock"); err == nil {
		t.Fatal("expected lockout error")
	}
	if !svc.IsCurrentlyLocked() {
		t.Fatal("should be locked")
	}
	if svc.RemainingLockSeconds() != 60 {
		t.Fatalf("remaining=%d, want 60", svc.RemainingLockSeconds())
	}

	clock.Advance(biometricLockDuration + time.Second)
	if svc.IsCurrentlyLocked() {
		t.Fatal("lock should have expired")
	}
	if svc.RemainingLockSeconds() != 0 {
		t.Fatal("remaining should be 0 after expiry")
	}
	// A subsequent attempt is evaluated normally, not auto-rejected.
	ok, err := svc.VerifyPasscode("123456")
	if err != nil || !ok {
		t.Fatalf("post-expiry verify: ok=%v err=%v", ok, err)
	}
}

func TestBiometricSuccessResetsState(t *testing.T) {
	v := &fakeVerifier{outcome: OutcomeFailed}
	svc, _ := newTestService(t, v)

	if err := svc.Authenticate(context.Background(), "unlock"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
	if svc.Snapshot().FailedAttempts != 1 {
		t.Fatal("failure not counted")
	}

	v.outcome = OutcomeSuccess
	if err := svc.Authenticate(context.Background(), "unlock"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	snap := svc.Snapshot()
	if !snap.Authenticated || snap.FailedAttempts != 0 || !snap.LockedUntil.IsZero() {
		t.Fatalf("state not reset on success: %+v", snap)
	}
}

func TestAutoLock(t *testing.T) {
	v := &fakeVerifier{outcome: OutcomeSuccess}
	clock := &fakeClock{now: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)}
	svc := NewService(keystore.NewMemoryStore(), v,
		WithClock(clock.Now), WithAutoLockTimeout(DefaultAutoLockTimeout))

	if err := svc.Authenticate(context.Background(), "unlock"); err != nil {
		t.Fatal(err)
	}
	if svc.ShouldAutoLock() {
		t.Fatal("fresh session should not auto-lock")
	}

	clock.Advance(DefaultAutoLockTimeout - time.Second)
	svc.Touch()
	clock.Advance(DefaultAutoLockTimeout - time.Second)
	if svc.ShouldAutoLock() {
		t.Fatal("touch should have extended the session")
	}

	clock.Advance(2 * time.Second)
	if !svc.ShouldAutoLock() {
		t.Fatal("stale session should auto-lock")
	}
	svc.Lock()
	if svc.IsAuthenticated() {
		t.Fatal("explicit lock must end the session")
	}
	if svc.ShouldAutoLock() {
		t.Fatal("locked session has nothing to auto-lock")
	}
}

func TestConcurrentFailuresAreAllCounted(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if err := svc.SetPasscode("123456"); err != nil {
		t.Fatal(err)
	}

	const workers = 4
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.VerifyPasscode("000000")
		}()
	}
	wg.Wait()
	if got := svc.Snapshot().FailedAttempts; got != workers {
		t.Fatalf("failedAttempts=%d, want %d", got, workers)
	}
}
