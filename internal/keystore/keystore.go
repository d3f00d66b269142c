package keystore

import "errors"

// Secret names the fixed set of blobs the core is allowed to persist.
// Callers never store anything outside this namespace.
type Secret string

const (
	SecretMasterKey        Secret = "master-key"
	SecretPasscode         Secret = "app-passcode"
	SecretBiometricEnabled Secret = "biometric-enabled"
)

var (
	// ErrSecretNotFound means the secret was never stored. Callers must treat
	// this as "uninitialized", not as corruption.
	ErrSecretNotFound = errors.New("keystore: secret not found")

	ErrUnknownSecret = errors.New("keystore: secret name outside namespace")
)

// Store persists small secret blobs. Save overwrites any prior value for the
// same secret, so updates are idempotent.
type Store interface {
	Save(s Secret, value []byte) error
	Retrieve(s Secret) ([]byte, error)
	Delete(s Secret) error
}

func validSecret(s Secret) bool {
	switch s {
	case SecretMasterKey, SecretPasscode, SecretBiometricEnabled:
		return true
	}
	return false
}
