package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"sync"

	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/keystore"
)

const masterKeySize = 32

// Engine performs all symmetric work for the evidence core under a single
// 256-bit master key. The key is created lazily on first use, persisted in
// the keystore and never leaves the process. It is random, not
// password-derived, so passcode changes never require re-encryption.
//
// If the keystore is cleared, a fresh key is generated and previously
// encrypted files become unrecoverable. Accepted behavior, not a bug.
type Engine struct {
	store  keystore.Store
	logger *log.Logger

	mu  sync.RWMutex
	key []byte
}

func NewEngine(store keystore.Store, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{store: store, logger: logger}
}

// masterKey returns the cached key, loading or generating it on first call.
func (e *Engine) masterKey() ([]byte, error) {
	e.mu.RLock()
	if e.key != nil {
		k := e.key
		e.mu.RUnlock()
		return k, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.key != nil {
		return e.key, nil
	}

	k, err := e.store.Retrieve(keystore.SecretMasterKey)
	switch {
	case errors.Is(err, keystore.ErrSecretNotFound):
		k = make([]byte, masterKeySize)
		if _, err := rand.Read(k); err != nil {
			return nil, err
		}
		if err := e.store.Save(keystore.SecretMasterKey, k); err != nil {
			Zero(k)
			return nil, err
		}
		e.logger.Printf("generated new master key")
	case err != nil:
		return nil, err
	}

	if len(k) != masterKeySize {
		return nil, errors.New("crypto: stored master key has wrong size")
	}
	if err := lockMemory(k); err != nil {
		e.logger.Printf("mlock master key: %v", err)
	}
	e.key = k
	return e.key, nil
}

// Encrypt seals plaintext under the master key. Output layout is
// [nonce||ciphertext||tag], EncryptedOverhead bytes larger than the input.
func (e *Engine) Encrypt(plaintext []byte) ([]byte, error) {
	key, err := e.masterKey()
	if err != nil {
		return nil, err
	}
	return SealX(key, plaintext, nil)
}

// Decrypt reverses Encrypt. Tampered input fails with ErrDecryptFailed.
func (e *Engine) Decrypt(ciphertext []byte) ([]byte, error) {
	key, err := e.masterKey()
	if err != nil {
		return nil, err
	}
	return OpenX(key, ciphertext, nil)
}

// HashBytes returns the SHA-256 digest. Integrity and reference use only,
// never secret storage.
func (e *Engine) HashBytes(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

func (e *Engine) HashString(s string) string {
	return hex.EncodeToString(e.HashBytes([]byte(s)))
}

// RotateMasterKey always fails. Rotation means decrypting every artifact
// with the old key and re-encrypting with the new one, which only the owner
// of the artifact inventory can drive.
func (e *Engine) RotateMasterKey() error {
	return ErrRotationNotImplemented
}

// Close drops the cached key from memory.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.key != nil {
		if err := unlockMemory(e.key); err != nil {
			e.logger.Printf("munlock master key: %v", err)
		}
		Zero(e.key)
		e.key = nil
	}
}
