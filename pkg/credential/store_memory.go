package credential

import (
	"fmt"
	"sync"
)

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[uint32]*Credential
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creds: make(map[uint32]*Credential)}
}

// Set stores cred under cred.Tag, replacing any existing set.
func (s *MemoryStore) Set(cred *Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[cred.Tag] = cred
	return nil
}

// Credential returns the credential set for tag.
func (s *MemoryStore) Credential(tag uint32) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.creds[tag]
	if !ok {
		return nil, fmt.Errorf("tag %d: %w", tag, ErrCredentialNotFound)
	}
	return cred, nil
}

// Tags returns the number of stored tags.
func (s *MemoryStore) Tags() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.creds)
}

var _ Store = (*MemoryStore)(nil)
