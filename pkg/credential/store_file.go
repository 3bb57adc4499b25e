package credential

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// File name constants for credential storage.
const (
	caCertFile     = "ca.pem"
	clientCertFile = "client.pem"
	clientKeyFile  = "client.key"
)

// FileStore reads credentials from a directory tree, one subdirectory per
// tag. Lookups are cached; call Reload to pick up changes on disk.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
	cache   map[uint32]*Credential
}

// NewFileStore creates a file-backed store rooted at baseDir.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{
		baseDir: baseDir,
		cache:   make(map[uint32]*Credential),
	}
}

// Credential returns the credential set for tag, loading it on first use.
func (s *FileStore) Credential(tag uint32) (*Credential, error) {
	s.mu.RLock()
	cred, ok := s.cache[tag]
	s.mu.RUnlock()
	if ok {
		return cred, nil
	}

	cred, err := s.load(tag)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[tag] = cred
	s.mu.Unlock()
	return cred, nil
}

// Reload drops all cached credentials.
func (s *FileStore) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[uint32]*Credential)
}

// List returns the tags present on disk, in directory order.
func (s *FileStore) List() ([]uint32, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}

	var tags []uint32
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		tag, err := strconv.ParseUint(e.Name(), 10, 32)
		if err != nil {
			continue
		}
		tags = append(tags, uint32(tag))
	}
	return tags, nil
}

func (s *FileStore) load(tag uint32) (*Credential, error) {
	dir := filepath.Join(s.baseDir, strconv.FormatUint(uint64(tag), 10))
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("tag %d: %w", tag, ErrCredentialNotFound)
		}
		return nil, err
	}

	cred := &Credential{Tag: tag}

	cas, err := ReadCertsFile(filepath.Join(dir, caCertFile))
	switch {
	case err == nil:
		cred.CACerts = cas
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("tag %d: %s: %w", tag, caCertFile, err)
	}

	chain, err := ReadCertsFile(filepath.Join(dir, clientCertFile))
	switch {
	case err == nil:
		key, err := ReadKeyFile(filepath.Join(dir, clientKeyFile))
		if err != nil {
			return nil, fmt.Errorf("tag %d: %s: %w", tag, clientKeyFile, err)
		}
		tlsCert := &tls.Certificate{PrivateKey: key, Leaf: chain[0]}
		for _, c := range chain {
			tlsCert.Certificate = append(tlsCert.Certificate, c.Raw)
		}
		cred.Certificate = tlsCert
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("tag %d: %s: %w", tag, clientCertFile, err)
	}

	if err := cred.Validate(); err != nil {
		return nil, fmt.Errorf("tag %d: %w", tag, err)
	}
	return cred, nil
}

var _ Store = (*FileStore)(nil)
