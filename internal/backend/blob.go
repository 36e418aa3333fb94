package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DiskBlobStore writes uploads under Dir and serves them from BaseURL.
// No object-store SDK is wired because avatars for this app are tiny and a
// static file directory behind the asset origin covers the contract.
type DiskBlobStore struct {
	Dir     string
	BaseURL string
}

func (d *DiskBlobStore) Upload(ctx context.Context, key string, data []byte) (string, error) {
	key = sanitizeKey(key)
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(d.Dir, key), data, 0o644); err != nil {
		return "", err
	}
	return strings.TrimRight(d.BaseURL, "/") + "/" + key, nil
}

// MemoryBlobStore is the test double.
type MemoryBlobStore struct {
	mu    sync.Mutex
	Blobs map[string][]byte
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{Blobs: make(map[string][]byte)}
}

func (m *MemoryBlobStore) Upload(ctx context.Context, key string, data []byte) (string, error) {
	key = sanitizeKey(key)
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	m.Blobs[key] = cp
	m.mu.Unlock()
	return "mem://avatars/" + key, nil
}

// sanitizeKey strips path separators so a key can never escape the store.
func sanitizeKey(key string) string {
	key = strings.ReplaceAll(key, "\\", "-")
	key = strings.ReplaceAll(key, "/", "-")
	return strings.TrimLeft(key, ".")
}
