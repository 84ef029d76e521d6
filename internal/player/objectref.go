// Package player drives the learn view's media side: it fetches the
// active pair's document and audio content, manages the temporary
// local copies, and runs the playback transport.
package player

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// ObjectRef is a temporary local copy of fetched binary content, the
// counterpart of a browser object URL. Each ref consumes disk space
// until released; the component that created it owns the release.
type ObjectRef struct {
	id   string
	path string

	mu       sync.Mutex
	released bool
	onGone   func(id string)
}

// ID returns the ref's unique identity.
func (r *ObjectRef) ID() string {
	return r.id
}

// Path returns the local file path, valid until Release.
func (r *ObjectRef) Path() string {
	return r.path
}

// Release frees the local copy. Idempotent: releasing twice, or
// releasing after the owning cache closed, is a no-op.
func (r *ObjectRef) Release() {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return
	}
	r.released = true
	r.mu.Unlock()

	os.Remove(r.path)
	if r.onGone != nil {
		r.onGone(r.id)
	}
}

// RefCache creates and tracks object refs inside one session-scoped
// temporary directory.
type RefCache struct {
	mu     sync.Mutex
	dir    string
	refs   map[string]*ObjectRef
	closed bool
}

// NewRefCache creates a cache with a fresh temporary directory.
func NewRefCache() (*RefCache, error) {
	dir, err := os.MkdirTemp("", "materials-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create content dir: %w", err)
	}
	return &RefCache{dir: dir, refs: make(map[string]*ObjectRef)}, nil
}

// Create writes data into a new temporary file and returns its ref.
// ext is the file extension including the dot.
func (c *RefCache) Create(data []byte, ext string) (*ObjectRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("content cache is closed")
	}

	id := uuid.NewString()
	path := filepath.Join(c.dir, id+ext)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write content file: %w", err)
	}

	ref := &ObjectRef{id: id, path: path, onGone: c.forget}
	c.refs[id] = ref
	return ref, nil
}

// forget drops a released ref from tracking.
func (c *RefCache) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.refs, id)
}

// Len reports how many live refs the cache tracks.
func (c *RefCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.refs)
}

// Close releases every live ref and removes the cache directory.
// Closing twice is a no-op.
func (c *RefCache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	live := make([]*ObjectRef, 0, len(c.refs))
	for _, ref := range c.refs {
		live = append(live, ref)
	}
	c.mu.Unlock()

	for _, ref := range live {
		ref.Release()
	}

	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("failed to remove content dir: %w", err)
	}
	return nil
}
