package crypto

import "errors"

var (
	ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")

	// ErrDecryptFailed covers tag mismatch and any other tamper signal.
	// It must never be swallowed into an empty result.
	ErrDecryptFailed = errors.New("crypto: message authentication failed")

	// ErrRotationNotImplemented: master key rotation is a documented no-op.
	// Callers wanting rotation must decrypt-all-with-old, re-encrypt-with-new.
	ErrRotationNotImplemented = errors.New("crypto: master key rotation not implemented")
)
