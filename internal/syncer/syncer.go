package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/storage"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/vault"
)

// Stats summarizes one sync pass.
type Stats struct {
	Uploaded   int
	Downloaded int
	Skipped    int
}

// Syncer moves ciphertext artifacts between the local vault and a remote
// blob store. Nothing is ever decrypted in transit; the remote holds the
// same bytes the vault holds.
type Syncer struct {
	vault  *vault.Vault
	blobs  storage.BlobStore
	metas  storage.MetaStore
	logger *log.Logger
}

type Option func(*Syncer)

func WithLogger(l *log.Logger) Option {
	return func(s *Syncer) { s.logger = l }
}

func New(v *vault.Vault, blobs storage.BlobStore, metas storage.MetaStore, opts ...Option) *Syncer {
	s := &Syncer{
		vault:  v,
		blobs:  blobs,
		metas:  metas,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Push uploads every local artifact the remote does not have yet. Already
// present names are skipped, not re-uploaded; artifacts are immutable once
// written so a name match means a content match.
func (s *Syncer) Push(ctx context.Context) (Stats, error) {
	var st Stats
	remote, err := s.remoteNames(ctx)
	if err != nil {
		return st, err
	}

	for _, mt := range []vault.MediaType{vault.MediaAudio, vault.MediaPhoto, vault.MediaVideo} {
		arts, err := s.vault.Artifacts(mt)
		if err != nil {
			return st, fmt.Errorf("list %s artifacts: %w", mt, err)
		}
		for _, a := range arts {
			if err := ctx.Err(); err != nil {
				return st, err
			}
			if remote[a.Name] {
				st.Skipped++
				continue
			}
			data, err := s.vault.ReadEncrypted(a.Name, mt)
			if err != nil {
				return st, fmt.Errorf("read %s: %w", a.Name, err)
			}
			if err := s.blobs.Put(ctx, a.Name, data); err != nil {
				return st, fmt.Errorf("upload %s: %w", a.Name, err)
			}
			meta := storage.ArtifactMeta{
				Name:       a.Name,
				MediaType:  string(mt),
				SizeBytes:  a.SizeBytes,
				UploadedAt: time.Now().Unix(),
			}
			if err := s.metas.PutMeta(ctx, meta); err != nil {
				return st, fmt.Errorf("index %s: %w", a.Name, err)
			}
			st.Uploaded++
			s.logger.Printf("syncer: pushed %s (%d bytes)", a.Name, a.SizeBytes)
		}
	}
	return st, nil
}

// Pull downloads remote artifacts missing locally. The index supplies the
// bucket for each name; entries with an unknown media type are skipped and
// logged rather than failing the whole pass.
func (s *Syncer) Pull(ctx context.Context) (Stats, error) {
	var st Stats
	local, err := s.localNames()
	if err != nil {
		return st, err
	}

	metas, err := s.metas.ListMeta(ctx, map[string]interface{}{})
	if err != nil {
		return st, fmt.Errorf("list remote index: %w", err)
	}
	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		if local[m.Name] {
			st.Skipped++
			continue
		}
		mt, err := vault.ParseMediaType(m.MediaType)
		if err != nil {
			s.logger.Printf("syncer: skipping %s, unknown media type %q", m.Name, m.MediaType)
			st.Skipped++
			continue
		}
		data, err := s.blobs.Get(ctx, m.Name)
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Printf("syncer: %s indexed but blob missing", m.Name)
			st.Skipped++
			continue
		}
		if err != nil {
			return st, fmt.Errorf("download %s: %w", m.Name, err)
		}
		if err := s.vault.WriteEncrypted(m.Name, mt, data); err != nil {
			return st, fmt.Errorf("store %s: %w", m.Name, err)
		}
		st.Downloaded++
		s.logger.Printf("syncer: pulled %s (%d bytes)", m.Name, len(data))
	}
	return st, nil
}

// Remove deletes an artifact from the remote after a local delete.
func (s *Syncer) Remove(ctx context.Context, name string) error {
	if err := s.blobs.Delete(ctx, name); err != nil {
		return fmt.Errorf("remove blob %s: %w", name, err)
	}
	if err := s.metas.DeleteMeta(ctx, name); err != nil {
		return fmt.Errorf("remove index %s: %w", name, err)
	}
	return nil
}

func (s *Syncer) remoteNames(ctx context.Context) (map[string]bool, error) {
	names, err := s.blobs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list remote blobs: %w", err)
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set, nil
}

func (s *Syncer) localNames() (map[string]bool, error) {
	set := make(map[string]bool)
	for _, mt := range []vault.MediaType{vault.MediaAudio, vault.MediaPhoto, vault.MediaVideo} {
		arts, err := s.vault.Artifacts(mt)
		if err != nil {
			return nil, err
		}
		for _, a := range arts {
			set[a.Name] = true
		}
	}
	return set, nil
}
