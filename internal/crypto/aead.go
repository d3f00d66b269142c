package crypto

import (
	"crypto/rand"
	"fmt"

	xchacha "golang.org/x/crypto/chacha20poly1305"
)

// EncryptedOverhead is the fixed growth of every sealed buffer: the random
// nonce prefix plus the Poly1305 tag.
const EncryptedOverhead = xchacha.NonceSizeX + xchacha.Overhead

// SealX encrypts with XChaCha20-Poly1305 under a fresh random nonce.
// Returned layout: [nonce||ciphertext||tag].
func SealX(key, plaintext, aad []byte) ([]byte, error) {
	aead, err := xchacha.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, xchacha.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	out = aead.Seal(out[:len(nonce)], nonce, plaintext, aad)
	return out, nil
}

// OpenX decrypts data sealed by SealX. A failed tag check returns
// ErrDecryptFailed, never garbage plaintext.
func OpenX(key, ciphertext, aad []byte) ([]byte, error) {
	aead, err := xchacha.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < xchacha.NonceSizeX+xchacha.Overhead {
		return nil, ErrCiphertextTooShort
	}
	nonce := ciphertext[:xchacha.NonceSizeX]
	ct := ciphertext[xchacha.NonceSizeX:]
	pt, err := aead.Open(nil, nonce, ct, aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return pt, nil
}
