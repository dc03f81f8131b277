package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"ncklabs.com/monster-detector-go/internal/detect"
)

// Definition describes one marker template in a YAML library file.
type Definition struct {
	Name      string  `yaml:"name"`
	Path      string  `yaml:"path"`
	Threshold float64 `yaml:"threshold,omitempty"`
	Preload   bool    `yaml:"preload,omitempty"`
}

// LibraryFile is the on-disk structure of a template library file.
type LibraryFile struct {
	Templates []Definition `yaml:"templates"`
}

// Library manages a named collection of marker templates defined in YAML
// files. Template images are built lazily through an internal cache; a
// definition's threshold, when set, overrides the global one for that
// marker.
type Library struct {
	mu       sync.RWMutex
	defs     map[string]Definition
	basePath string
	cache    *buildCache
}

// NewLibrary creates a library rooted at basePath. Relative template paths
// in definitions resolve against it. cfg drives derived data (grayscale,
// keypoints) when templates are built.
func NewLibrary(basePath string, cfg detect.Config) *Library {
	return &Library{
		defs:     make(map[string]Definition),
		basePath: basePath,
		cache:    newBuildCache(cfg),
	}
}

// LoadFromFile loads marker definitions from a YAML file.
func (l *Library) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read template file %s: %w", filePath, err)
	}

	var file LibraryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal template YAML: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for i, def := range file.Templates {
		if def.Name == "" {
			return fmt.Errorf("template %d: name cannot be empty", i+1)
		}
		if def.Path == "" {
			return fmt.Errorf("template %d (%s): path cannot be empty", i+1, def.Name)
		}
		if !filepath.IsAbs(def.Path) {
			def.Path = filepath.Join(l.basePath, def.Path)
		}
		l.defs[def.Name] = def
	}
	return nil
}

// LoadFromDirectory loads every .yaml/.yml file in a directory.
func (l *Library) LoadFromDirectory(dirPath string) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read template directory %s: %w", dirPath, err)
	}

	var loadErrors []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		fullPath := filepath.Join(dirPath, entry.Name())
		if err := l.LoadFromFile(fullPath); err != nil {
			loadErrors = append(loadErrors, fmt.Errorf("file %s: %w", entry.Name(), err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("failed to load %d template files (first error): %w", len(loadErrors), loadErrors[0])
	}
	return nil
}

// Register adds a definition programmatically.
func (l *Library) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("template name cannot be empty")
	}
	if def.Path == "" {
		return fmt.Errorf("template %s: path cannot be empty", def.Name)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.defs[def.Name] = def
	return nil
}

// Get returns the built template for a marker, loading and deriving it on
// first use.
func (l *Library) Get(name string) (*detect.Template, error) {
	l.mu.RLock()
	def, ok := l.defs[name]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("template '%s' not found in library", name)
	}
	return l.cache.get(def)
}

// ThresholdFor returns the per-marker threshold override and whether one
// is set.
func (l *Library) ThresholdFor(name string) (float64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	def, ok := l.defs[name]
	if !ok || def.Threshold == 0 {
		return 0, false
	}
	return def.Threshold, true
}

// Has reports whether a marker is defined.
func (l *Library) Has(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.defs[name]
	return ok
}

// List returns all defined marker names, sorted.
func (l *Library) List() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.defs))
	for name := range l.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of defined markers.
func (l *Library) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.defs)
}

// Remove drops a marker definition and evicts its built template.
func (l *Library) Remove(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.defs[name]; !ok {
		return false
	}
	delete(l.defs, name)
	l.cache.evict(name)
	return true
}

// PreloadAll builds every marker flagged preload. The first failure is
// returned after attempting the rest.
func (l *Library) PreloadAll() error {
	l.mu.RLock()
	defs := make([]Definition, 0, len(l.defs))
	for _, def := range l.defs {
		if def.Preload {
			defs = append(defs, def)
		}
	}
	l.mu.RUnlock()

	var firstErr error
	for _, def := range defs {
		if _, err := l.cache.get(def); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to preload template %s: %w", def.Name, err)
		}
	}
	return firstErr
}

// Rederive rebuilds derived data for every cached template under a new
// configuration. Call after preprocessing or feature parameters change.
func (l *Library) Rederive(cfg detect.Config) {
	l.cache.rederive(cfg)
}

// Stats returns build-cache counters.
func (l *Library) Stats() CacheStats {
	return l.cache.stats()
}
