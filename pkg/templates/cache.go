package templates

import (
	"sync"

	"ncklabs.com/monster-detector-go/internal/detect"
)

// CacheStats tracks build-cache performance.
type CacheStats struct {
	Hits   int64 // Served from cache
	Misses int64 // Had to build
	Loads  int64 // Total build operations
	Evicts int64 // Total evictions
}

// buildCache holds fully built templates keyed by marker name, so a marker
// used across many cycles is decoded and feature-derived once.
type buildCache struct {
	mu    sync.Mutex
	built map[string]*detect.Template
	cfg   detect.Config
	st    CacheStats
}

func newBuildCache(cfg detect.Config) *buildCache {
	return &buildCache{
		built: make(map[string]*detect.Template),
		cfg:   cfg,
	}
}

func (c *buildCache) get(def Definition) (*detect.Template, error) {
	c.mu.Lock()
	if tmpl, ok := c.built[def.Name]; ok {
		c.st.Hits++
		c.mu.Unlock()
		return tmpl, nil
	}
	cfg := c.cfg
	c.mu.Unlock()

	tmpl, err := detect.LoadTemplate(def.Path, cfg)
	if err != nil {
		return nil, err
	}
	tmpl.Name = def.Name

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another goroutine may have built it first; keep the existing entry.
	if prev, ok := c.built[def.Name]; ok {
		c.st.Hits++
		return prev, nil
	}
	c.st.Misses++
	c.st.Loads++
	c.built[def.Name] = tmpl
	return tmpl, nil
}

func (c *buildCache) evict(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.built[name]; ok {
		delete(c.built, name)
		c.st.Evicts++
	}
}

func (c *buildCache) rederive(cfg detect.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	for name, tmpl := range c.built {
		c.built[name] = tmpl.Rederive(cfg)
	}
}

func (c *buildCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}
