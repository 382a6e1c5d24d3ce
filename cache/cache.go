// Package cache keeps recent verdicts in memory so the same article is not
// sent through the LLM pipeline twice.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	"github.com/use-agent/truthlens/models"
)

type entry struct {
	result    models.ClassificationResult
	createdAt time.Time
}

// Cache is a bounded in-memory verdict store. It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	maxAge     time.Duration
	done       chan struct{}
	stopOnce   sync.Once
}

// New creates a Cache. A maxAge <= 0 disables it: Get always misses and Set
// is a no-op. A sweep goroutine drops expired entries until Stop.
func New(maxEntries int, maxAge time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		maxAge:     maxAge,
		done:       make(chan struct{}),
	}
	if maxAge > 0 {
		go c.cleanupLoop()
	}
	return c
}

// Key hashes the request content. Each field is length-prefixed so no
// header/body split of the same bytes shares a key.
func Key(content *models.PageContent) string {
	h := sha256.New()
	var n [binary.MaxVarintLen64]byte
	for _, field := range []string{content.Header, content.Body} {
		h.Write(n[:binary.PutUvarint(n[:], uint64(len(field)))])
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a copy of the cached verdict when it is younger than maxAge.
func (c *Cache) Get(key string) (*models.ClassificationResult, bool) {
	if c.maxAge <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || time.Since(e.createdAt) > c.maxAge {
		return nil, false
	}
	result := e.result
	return &result, true
}

// Set stores a verdict. At capacity one arbitrary entry is evicted.
func (c *Cache) Set(key string, result *models.ClassificationResult) {
	if c.maxAge <= 0 || result == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[key] = &entry{result: *result, createdAt: time.Now()}
}

// Len reports the number of stored verdicts, expired ones included until
// the next sweep.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Stop ends the sweep goroutine. Safe to call more than once.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *Cache) cleanupLoop() {
	interval := c.maxAge / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-c.maxAge)
			c.mu.Lock()
			for k, e := range c.store {
				if e.createdAt.Before(cutoff) {
					delete(c.store, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
