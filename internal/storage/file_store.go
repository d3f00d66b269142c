package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileBlobStore is the local backend, used for tests and for syncing to a
// mounted remote filesystem.
type FileBlobStore struct{ dir string }

func NewFileBlobStore(dir string) *FileBlobStore {
	_ = os.MkdirAll(dir, 0700)
	return &FileBlobStore{dir: dir}
}

func (f *FileBlobStore) Put(_ context.Context, name string, data []byte) error {
	return os.WriteFile(filepath.Join(f.dir, name+".blob"), data, 0600)
}

func (f *FileBlobStore) Get(_ context.Context, name string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(f.dir, name+".blob"))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return b, err
}

func (f *FileBlobStore) Delete(_ context.Context, name string) error {
	err := os.Remove(filepath.Join(f.dir, name+".blob"))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (f *FileBlobStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".blob") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".blob"))
	}
	return names, nil
}

// FileMetaStore keeps the artifact index in one JSON file next to the
// blobs, rewritten on every change. Index sizes here are small.
type FileMetaStore struct {
	mu   sync.Mutex
	path string
}

func NewFileMetaStore(dir string) (*FileMetaStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return &FileMetaStore{path: filepath.Join(dir, "index.json")}, nil
}

func (f *FileMetaStore) PutMeta(_ context.Context, meta ArtifactMeta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	metas, err := f.loadLocked()
	if err != nil {
		return err
	}
	metas[meta.Name] = meta
	return f.saveLocked(metas)
}

func (f *FileMetaStore) ListMeta(_ context.Context, filter map[string]interface{}) ([]ArtifactMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	metas, err := f.loadLocked()
	if err != nil {
		return nil, err
	}
	var out []ArtifactMeta
	for _, m := range metas {
		if mt, ok := filter["mediaType"]; ok && m.MediaType != mt {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *FileMetaStore) DeleteMeta(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	metas, err := f.loadLocked()
	if err != nil {
		return err
	}
	delete(metas, name)
	return f.saveLocked(metas)
}

func (f *FileMetaStore) loadLocked() (map[string]ArtifactMeta, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]ArtifactMeta{}, nil
	}
	if err != nil {
		return nil, err
	}
	var metas map[string]ArtifactMeta
	if err := json.Unmarshal(b, &metas); err != nil {
		return nil, err
	}
	return metas, nil
}

func (f *FileMetaStore) saveLocked(metas map[string]ArtifactMeta) error {
	b, err := json.Marshal(metas)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, b, 0600)
}
