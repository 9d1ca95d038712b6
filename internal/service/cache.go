package service

import (
	"sync"

	"github.com/arturoeanton/commitlens/internal/domain"
)

// Cache memoizes completed commit analyses by SHA. Analysis of a given commit
// is idempotent, so entries are write-once-per-key; later writers overwrite
// with an equivalent value. The cache is injected so its lifetime is the
// caller's choice (process, request, or a fresh one per test).
type Cache interface {
	Get(sha string) ([]domain.SubCommitAnalysis, bool)
	Put(sha string, analyses []domain.SubCommitAnalysis)
}

// MemoryCache is an in-process, append-only Cache with no eviction.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]domain.SubCommitAnalysis
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]domain.SubCommitAnalysis)}
}

func (c *MemoryCache) Get(sha string) ([]domain.SubCommitAnalysis, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	analyses, ok := c.entries[sha]
	return analyses, ok
}

func (c *MemoryCache) Put(sha string, analyses []domain.SubCommitAnalysis) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[sha] = analyses
}
