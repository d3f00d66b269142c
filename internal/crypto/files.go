package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strings"
)

// EncryptedExt marks encrypted artifacts on disk.
const EncryptedExt = ".encrypted"

const secureDeletePasses = 3

// EncryptFile reads path, seals its content and writes a sibling file with
// the EncryptedExt suffix. The caller owns cleanup of the source file.
func (e *Engine) EncryptFile(path string) (string, error) {
	pt, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	defer Zero(pt)

	ct, err := e.Encrypt(pt)
	if err != nil {
		return "", err
	}
	out := path + EncryptedExt
	if err := os.WriteFile(out, ct, 0o600); err != nil {
		return "", err
	}
	return out, nil
}

// DecryptFile reverses EncryptFile, writing the plaintext to a sibling path
// with the EncryptedExt suffix stripped. The caller owns cleanup of both the
// source and the returned plaintext file.
func (e *Engine) DecryptFile(path string) (string, error) {
	ct, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	pt, err := e.Decrypt(ct)
	if err != nil {
		return "", err
	}
	defer Zero(pt)

	out := strings.TrimSuffix(path, EncryptedExt)
	if out == path {
		out = path + ".decrypted"
	}
	if err := os.WriteFile(out, pt, 0o600); err != nil {
		return "", err
	}
	return out, nil
}

// SecureDelete overwrites the file with fresh random data for a fixed number
// of passes before removing the directory entry. Fails if the file does not
// exist. Effectiveness depends on the filesystem not remapping blocks;
// flash translation layers and CoW filesystems weaken the guarantee.
func SecureDelete(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("crypto: secure delete target is a directory: %s", path)
	}

	size := info.Size()
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}

	buf := make([]byte, 64*1024)
	for pass := 0; pass < secureDeletePasses; pass++ {
		if _, err := f.Seek(0, 0); err != nil {
			f.Close()
			return err
		}
		remaining := size
		for remaining > 0 {
			n := int64(len(buf))
			if remaining < n {
				n = remaining
			}
			if _, err := rand.Read(buf[:n]); err != nil {
				f.Close()
				return err
			}
			if _, err := f.Write(buf[:n]); err != nil {
				f.Close()
				return err
			}
			remaining -= n
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}

// IsNotExist reports whether err is a missing-file condition from the
// underlying filesystem.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
