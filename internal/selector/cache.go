package selector

import "sync"

// LearnedCache remembers, per action, the candidate that last worked. It
// lives for one run; a new run gets a new cache.
type LearnedCache struct {
	mu      sync.RWMutex
	entries map[Action]Candidate
}

func NewLearnedCache() *LearnedCache {
	return &LearnedCache{entries: make(map[Action]Candidate)}
}

// Get returns the remembered candidate for a, if any.
func (c *LearnedCache) Get(a Action) (Candidate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cand, ok := c.entries[a]
	return cand, ok
}

// Set records cand as the working candidate for a, replacing any previous entry.
func (c *LearnedCache) Set(a Action, cand Candidate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[a] = cand
}

// Snapshot returns the canonical selector strings learned so far.
func (c *LearnedCache) Snapshot() map[Action]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[Action]string, len(c.entries))
	for a, cand := range c.entries {
		out[a] = cand.String()
	}
	return out
}
