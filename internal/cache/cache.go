package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Backend is the persistent side of the cache: the content hash each file
// was last stored with.
type Backend interface {
	FileHash(ctx context.Context, path string) (string, bool, error)
	FileHashes(ctx context.Context) (map[string]string, error)
}

// HashCache remembers file content hashes in memory, falling back to the
// backend, so unchanged files can skip re-ingestion.
type HashCache struct {
	backend Backend
	mu      sync.RWMutex
	memory  map[string]string // path → content hash
}

// NewHashCache creates a cache over backend.
func NewHashCache(backend Backend) *HashCache {
	return &HashCache{
		backend: backend,
		memory:  make(map[string]string),
	}
}

// Unchanged reports whether path was last stored with hash. Backend errors
// count as changed.
func (c *HashCache) Unchanged(ctx context.Context, path, hash string) bool {
	c.mu.RLock()
	if v, ok := c.memory[path]; ok {
		c.mu.RUnlock()
		return v == hash
	}
	c.mu.RUnlock()

	stored, ok, err := c.backend.FileHash(ctx, path)
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("Hash lookup failed")
		return false
	}
	if !ok {
		return false
	}

	c.mu.Lock()
	c.memory[path] = stored
	c.mu.Unlock()

	return stored == hash
}

// Set records the hash path was just stored with.
func (c *HashCache) Set(path, hash string) {
	c.mu.Lock()
	c.memory[path] = hash
	c.mu.Unlock()
}

// Preload loads every stored hash into memory.
func (c *HashCache) Preload(ctx context.Context) error {
	hashes, err := c.backend.FileHashes(ctx)
	if err != nil {
		return fmt.Errorf("preload cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for path, hash := range hashes {
		c.memory[path] = hash
	}

	log.Info().Int("count", len(hashes)).Msg("Preloaded file hashes")
	return nil
}
