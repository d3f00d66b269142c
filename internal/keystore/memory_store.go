package keystore

import "sync"

// MemoryStore is a volatile Store for tests and throwaway sessions.
type MemoryStore struct {
	mu      sync.Mutex
	secrets map[Secret][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[Secret][]byte)}
}

func (m *MemoryStore) Save(s Secret, value []byte) error {
	if !validSecret(s) {
		return ErrUnknownSecret
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[s] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Retrieve(s Secret) ([]byte, error) {
	if !validSecret(s) {
		return nil, ErrUnknownSecret
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.secrets[s]
	if !ok {
		return nil, ErrSecretNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Delete(s Secret) error {
	if !validSecret(s) {
		return ErrUnknownSecret
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, s)
	return nil
}
