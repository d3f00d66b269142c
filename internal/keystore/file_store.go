package keystore

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/argon2"
	xchacha "golang.org/x/crypto/chacha20poly1305"
)

const saltFile = "keystore.salt"

// FileStore keeps each secret in its own file under dir, sealed with
// XChaCha20-Poly1305 under a key derived from machine identity plus a
// persisted random salt. Moving the directory to another machine makes the
// secrets unreadable, which stands in for the platform keychain's
// this-device-only accessibility class. Files are 0600 in a 0700 directory
// and must be excluded from any backup set by the deployment.
type FileStore struct {
	dir string
	key [32]byte
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	salt, err := loadOrCreateSalt(filepath.Join(dir, saltFile))
	if err != nil {
		return nil, err
	}
	fs := &FileStore{dir: dir}
	derived := argon2.IDKey(machineSecret(), salt, 3, 64*1024, 1, 32)
	copy(fs.key[:], derived)
	for i := range derived {
		derived[i] = 0
	}
	return fs, nil
}

func (f *FileStore) Save(s Secret, value []byte) error {
	if !validSecret(s) {
		return ErrUnknownSecret
	}
	sealed, err := f.seal(value, []byte(s))
	if err != nil {
		return err
	}
	// Delete-then-insert semantics via plain overwrite.
	return os.WriteFile(f.path(s), sealed, 0o600)
}

func (f *FileStore) Retrieve(s Secret) ([]byte, error) {
	if !validSecret(s) {
		return nil, ErrUnknownSecret
	}
	sealed, err := os.ReadFile(f.path(s))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrSecretNotFound
	}
	if err != nil {
		return nil, err
	}
	return f.open(sealed, []byte(s))
}

func (f *FileStore) Delete(s Secret) error {
	if !validSecret(s) {
		return ErrUnknownSecret
	}
	err := os.Remove(f.path(s))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (f *FileStore) path(s Secret) string {
	return filepath.Join(f.dir, string(s)+".sealed")
}

func (f *FileStore) seal(plaintext, aad []byte) ([]byte, error) {
	aead, err := xchacha.NewX(f.key[:])
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, xchacha.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, aad), nil
}

func (f *FileStore) open(sealed, aad []byte) ([]byte, error) {
	aead, err := xchacha.NewX(f.key[:])
	if err != nil {
		return nil, err
	}
	if len(sealed) < xchacha.NonceSizeX {
		return nil, fmt.Errorf("keystore: sealed blob too short")
	}
	nonce := sealed[:xchacha.NonceSizeX]
	ct := sealed[xchacha.NonceSizeX:]
	return aead.Open(nil, nonce, ct, aad)
}

func loadOrCreateSalt(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err == nil && len(b) == 32 {
		return b, nil
	}
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, salt, 0o600); err != nil {
		return nil, err
	}
	return salt, nil
}

// machineSecret collects stable per-installation markers. Weak entropy on its
// own; the persisted salt and argon2id carry the rest.
func machineSecret() []byte {
	var parts []string
	if b, err := os.ReadFile("/etc/machine-id"); err == nil {
		parts = append(parts, strings.TrimSpace(string(b)))
	}
	if host, err := os.Hostname(); err == nil {
		parts = append(parts, host)
	}
	if len(parts) == 0 {
		parts = append(parts, "voiceit-fallback")
	}
	return []byte(strings.Join(parts, "|"))
}
