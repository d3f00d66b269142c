package vault

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/crypto"
)

var (
	ErrFileNotFound  = errors.New("vault: file not found")
	ErrBadMediaType  = errors.New("vault: unknown media type")
	ErrThumbnail     = errors.New("vault: thumbnail generation failed")
	ErrImageEncoding = errors.New("vault: image conversion failed")
)

// FileCipher is the slice of the encryption engine the vault needs.
// *crypto.Engine satisfies it.
type FileCipher interface {
	EncryptFile(path string) (string, error)
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// MediaProber extracts metadata the ciphertext makes unreadable later:
// duration for audio/video, a representative frame for thumbnails. Backed by
// whatever media toolkit the deployment has; the vault treats it as a black
// box and degrades gracefully without one.
type MediaProber interface {
	Duration(path string) (float64, error)
	Frame(path string) (image.Image, error)
}

// Vault owns the encrypted evidence directories. All plaintext it touches is
// transient: sources are removed after the durable encrypted copy lands, and
// decrypted copies go to the temp bucket owned by the caller.
type Vault struct {
	root   string
	cipher FileCipher
	prober MediaProber
	logger *log.Logger
}

type Option func(*Vault)

// WithProber wires a media toolkit for duration and thumbnail extraction.
func WithProber(p MediaProber) Option {
	return func(v *Vault) { v.prober = p }
}

func WithLogger(l *log.Logger) Option {
	return func(v *Vault) { v.logger = l }
}

// New creates the bucket tree under root. Idempotent.
func New(root string, cipher FileCipher, opts ...Option) (*Vault, error) {
	v := &Vault{root: root, cipher: cipher, logger: log.Default()}
	for _, opt := range opts {
		opt(v)
	}
	for _, mt := range []MediaType{MediaAudio, MediaPhoto, MediaVideo} {
		if err := os.MkdirAll(filepath.Join(root, mt.bucket()), 0o700); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(v.tmpDir(), 0o700); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Vault) tmpDir() string { return filepath.Join(v.root, "tmp") }

// SaveAudio encrypts a captured audio file into the audio bucket.
// The plaintext source is deleted best-effort once the encrypted copy is
// durable; a failed source delete is logged and does not fail the save.
func (v *Vault) SaveAudio(ctx context.Context, src string) (StoredFile, error) {
	duration := v.probeDuration(src)
	name := artifactName(filepath.Ext(src)) + crypto.EncryptedExt
	sf, err := v.encryptAndPlace(ctx, src, name, MediaAudio)
	if err != nil {
		return StoredFile{}, err
	}
	sf.DurationSeconds = duration
	return sf, nil
}

// SaveImage re-encodes the image as JPEG (pixel data only, so any
// orientation metadata has already been folded in by ApplyOrientation) and
// stores it encrypted in the photo bucket.
func (v *Vault) SaveImage(ctx context.Context, img image.Image) (StoredFile, error) {
	if img == nil {
		return StoredFile{}, ErrImageEncoding
	}
	tmp, err := os.CreateTemp(v.tmpDir(), "img-*.jpg")
	if err != nil {
		return StoredFile{}, err
	}
	tmpPath := tmp.Name()
	if err := encodeJPEG(tmp, img); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return StoredFile{}, fmt.Errorf("%w: %v", ErrImageEncoding, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return StoredFile{}, err
	}

	name := artifactName(".jpg") + crypto.EncryptedExt
	sf, err := v.encryptAndPlace(ctx, tmpPath, name, MediaPhoto)
	if err != nil {
		return StoredFile{}, err
	}
	bounds := img.Bounds()
	sf.Width = bounds.Dx()
	sf.Height = bounds.Dy()
	return sf, nil
}

// SaveVideo encrypts a captured video into the video bucket and, when a
// prober is wired, stores a thumbnail frame through the photo path.
// Thumbnail failure never aborts the video save.
func (v *Vault) SaveVideo(ctx context.Context, src string) (StoredFile, error) {
	duration := v.probeDuration(src)

	var thumbName string
	if v.prober != nil {
		frame, err := v.prober.Frame(src)
		if err != nil {
			v.logger.Printf("video thumbnail: %v", errors.Join(ErrThumbnail, err))
		} else if frame != nil {
			thumb, err := v.SaveImage(ctx, frame)
			if err != nil {
				v.logger.Printf("video thumbnail: %v", err)
			} else {
				thumbName = thumb.Name
			}
		}
	}

	name := artifactName(filepath.Ext(src)) + crypto.EncryptedExt
	sf, err := v.encryptAndPlace(ctx, src, name, MediaVideo)
	if err != nil {
		// The thumbnail, if any, is now an orphan; remove it.
		if thumbName != "" {
			_ = v.Delete(thumbName, MediaPhoto)
		}
		return StoredFile{}, err
	}
	sf.DurationSeconds = duration
	sf.ThumbnailName = thumbName
	return sf, nil
}

// encryptAndPlace is the shared save tail: encrypt next to the source, move
// the ciphertext into the bucket, then clean the plaintext up. Any failure
// before the move leaves the durable directory untouched; after the move the
// operation is committed and cancellation no longer applies.
func (v *Vault) encryptAndPlace(ctx context.Context, src, name string, mt MediaType) (StoredFile, error) {
	encPath, err := v.cipher.EncryptFile(src)
	if err != nil {
		return StoredFile{}, err
	}

	if err := ctx.Err(); err != nil {
		_ = os.Remove(encPath)
		return StoredFile{}, err
	}

	dst := filepath.Join(v.root, mt.bucket(), name)
	if err := moveFile(encPath, dst); err != nil {
		_ = os.Remove(encPath)
		return StoredFile{}, err
	}

	// Committed. Plaintext cleanup is best-effort from here on.
	if err := crypto.SecureDelete(src); err != nil {
		v.logger.Printf("cleanup plaintext source %s: %v", src, err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return StoredFile{}, err
	}
	return StoredFile{Name: name, SizeBytes: info.Size()}, nil
}

// Load decrypts a stored artifact to a fresh file in the vault's temp bucket
// and returns its path. The caller must delete the file after use, ideally
// with crypto.SecureDelete; the vault does not track these copies. Prefer
// LoadBytes where the artifact fits in memory.
func (v *Vault) Load(ctx context.Context, name string, mt MediaType) (string, error) {
	pt, err := v.LoadBytes(ctx, name, mt)
	if err != nil {
		return "", err
	}
	defer crypto.Zero(pt)

	ext := filepath.Ext(stripEncrypted(name))
	tmp, err := os.CreateTemp(v.tmpDir(), "dec-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(pt); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// LoadBytes decrypts a stored artifact into memory. No plaintext touches
// disk; zero the buffer when done.
func (v *Vault) LoadBytes(ctx context.Context, name string, mt MediaType) ([]byte, error) {
	if !mt.valid() {
		return nil, ErrBadMediaType
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ct, err := os.ReadFile(filepath.Join(v.root, mt.bucket(), filepath.Base(name)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return v.cipher.Decrypt(ct)
}

// Delete removes a stored artifact. Absence is not an error.
func (v *Vault) Delete(name string, mt MediaType) error {
	if !mt.valid() {
		return ErrBadMediaType
	}
	err := os.Remove(filepath.Join(v.root, mt.bucket(), filepath.Base(name)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// TotalBytesUsed sums encrypted file sizes across all buckets. No caching;
// recomputed on every call.
func (v *Vault) TotalBytesUsed() (int64, error) {
	var total int64
	for _, mt := range []MediaType{MediaAudio, MediaPhoto, MediaVideo} {
		entries, err := os.ReadDir(filepath.Join(v.root, mt.bucket()))
		if err != nil {
			return 0, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				return 0, err
			}
			total += info.Size()
		}
	}
	return total, nil
}

// Artifact is a bucket listing entry, used by the sync layer.
type Artifact struct {
	Name      string
	Type      MediaType
	SizeBytes int64
}

// Artifacts lists the encrypted files in one bucket.
func (v *Vault) Artifacts(mt MediaType) ([]Artifact, error) {
	if !mt.valid() {
		return nil, ErrBadMediaType
	}
	entries, err := os.ReadDir(filepath.Join(v.root, mt.bucket()))
	if err != nil {
		return nil, err
	}
	out := make([]Artifact, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		out = append(out, Artifact{Name: e.Name(), Type: mt, SizeBytes: info.Size()})
	}
	return out, nil
}

// ReadEncrypted returns the raw ciphertext of a stored artifact. The sync
// layer ships these bytes as-is; plaintext never crosses this boundary.
func (v *Vault) ReadEncrypted(name string, mt MediaType) ([]byte, error) {
	if !mt.valid() {
		return nil, ErrBadMediaType
	}
	b, err := os.ReadFile(filepath.Join(v.root, mt.bucket(), filepath.Base(name)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrFileNotFound
	}
	return b, err
}

// WriteEncrypted restores a ciphertext artifact into its bucket, used when
// pulling from the sync backend. Existing files are replaced.
func (v *Vault) WriteEncrypted(name string, mt MediaType, data []byte) error {
	if !mt.valid() {
		return ErrBadMediaType
	}
	return os.WriteFile(filepath.Join(v.root, mt.bucket(), filepath.Base(name)), data, 0o600)
}

func (v *Vault) probeDuration(path string) float64 {
	if d, err := wavDuration(path); err == nil {
		return d
	}
	if v.prober != nil {
		if d, err := v.prober.Duration(path); err == nil {
			return d
		}
	}
	return 0
}

func stripEncrypted(name string) string {
	if ext := filepath.Ext(name); ext == crypto.EncryptedExt {
		return name[:len(name)-len(ext)]
	}
	return name
}

// moveFile renames, falling back to copy+remove across filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
