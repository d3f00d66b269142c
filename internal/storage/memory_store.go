package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryMetaStore keeps the artifact index in memory. Used when no remote
// index is configured, and in tests.
type MemoryMetaStore struct {
	mu    sync.Mutex
	metas map[string]ArtifactMeta
}

func NewMemoryMetaStore() *MemoryMetaStore {
	return &MemoryMetaStore{metas: make(map[string]ArtifactMeta)}
}

func (m *MemoryMetaStore) PutMeta(_ context.Context, meta ArtifactMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metas[meta.Name] = meta
	return nil
}

func (m *MemoryMetaStore) ListMeta(_ context.Context, filter map[string]interface{}) ([]ArtifactMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ArtifactMeta
	for _, meta := range m.metas {
		if mt, ok := filter["mediaType"]; ok && meta.MediaType != mt {
			continue
		}
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryMetaStore) DeleteMeta(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.metas, name)
	return nil
}
