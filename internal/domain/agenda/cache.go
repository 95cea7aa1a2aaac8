package agenda

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type cachedConfig struct {
	cfg       *Config
	expiresAt time.Time
}

// configCache keeps normalized configs per clinic. A non-positive ttl
// disables it.
type configCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[uuid.UUID]cachedConfig
}

func newConfigCache(ttl time.Duration) *configCache {
	return &configCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[uuid.UUID]cachedConfig),
	}
}

func (c *configCache) get(clinicID uuid.UUID) (*Config, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[clinicID]
	c.mu.RUnlock()
	if !ok || !c.now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.cfg, true
}

func (c *configCache) put(clinicID uuid.UUID, cfg *Config) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[clinicID] = cachedConfig{cfg: cfg, expiresAt: c.now().Add(c.ttl)}
}

func (c *configCache) invalidate(clinicID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, clinicID)
}
