// Package offline implements the network interception layer: a gateway that
// serves requests network-first with cache fallback, plus an online/offline
// notifier. It is the service-worker role re-architected around injected
// capabilities instead of ambient globals.
package offline

import (
	"context"
	"net/http"
	"sync"
)

// Request is the gateway's view of one intercepted request. Navigate marks
// a top-level document load, which is the only kind that may fall back to
// the offline root document.
type Request struct {
	Method   string
	URL      string
	Navigate bool
}

// Response is a fully buffered response. Buffering the body makes the
// copy-before-store rule trivial: the cache and the caller never share a
// byte slice.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Clone returns an independent copy.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	cp := &Response{Status: r.Status, Header: r.Header.Clone()}
	cp.Body = make([]byte, len(r.Body))
	copy(cp.Body, r.Body)
	return cp
}

// NetworkClient performs the actual upstream fetch.
type NetworkClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// ResponseCache is a set of named caches keyed by request URL, mirroring the
// versioned cache the gateway retains exactly one of. Implementations must
// be safe for concurrent Put/Match.
type ResponseCache interface {
	Put(ctx context.Context, name, key string, resp *Response) error
	Match(ctx context.Context, name, key string) (*Response, bool)
	Names(ctx context.Context) []string
	Drop(ctx context.Context, name string) error
}

// MemoryResponseCache keeps everything in process memory.
type MemoryResponseCache struct {
	mu     sync.RWMutex
	caches map[string]map[string]*Response
}

func NewMemoryResponseCache() *MemoryResponseCache {
	return &MemoryResponseCache{caches: make(map[string]map[string]*Response)}
}

func (m *MemoryResponseCache) Put(ctx context.Context, name, key string, resp *Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.caches[name]
	if !ok {
		c = make(map[string]*Response)
		m.caches[name] = c
	}
	c[key] = resp.Clone()
	return nil
}

func (m *MemoryResponseCache) Match(ctx context.Context, name, key string) (*Response, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.caches[name]
	if !ok {
		return nil, false
	}
	resp, ok := c[key]
	if !ok {
		return nil, false
	}
	return resp.Clone(), true
}

func (m *MemoryResponseCache) Names(ctx context.Context) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.caches))
	for n := range m.caches {
		names = append(names, n)
	}
	return names
}

func (m *MemoryResponseCache) Drop(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.caches, name)
	return nil
}
