package catalog

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrToolNotFound is returned by a Store when no configuration exists for
// the requested slug.
var ErrToolNotFound = errors.New("tool configuration not found")

// Store supplies raw tool configurations by identifier. Implementations
// are read-only from the engine's point of view: the engine never writes
// to the configuration store.
type Store interface {
	// Get returns the raw (un-normalized) configuration for slug, or an
	// error wrapping ErrToolNotFound.
	Get(slug string) (ToolConfig, error)
	// List returns every raw configuration in a stable order.
	List() []ToolConfig
}

// FileStore loads every YAML tool record under a directory once at
// construction and serves them from memory. The map is never mutated
// afterwards, so concurrent reads need no locking.
type FileStore struct {
	dir   string
	tools map[string]ToolConfig
	order []string
}

var _ Store = (*FileStore)(nil)

// NewFileStore reads all *.yaml / *.yml files under dir. A file that
// fails to parse or carries no slug aborts the load; a half-loaded
// catalog is worse than a failed startup.
func NewFileStore(dir string) (*FileStore, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read tool catalog directory %q: %w", dir, err)
	}

	fs := &FileStore{
		dir:   dir,
		tools: make(map[string]ToolConfig),
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read tool file %q: %w", path, err)
		}

		var cfg ToolConfig
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse tool file %q: %w", path, err)
		}
		if cfg.Slug == "" {
			return nil, fmt.Errorf("tool file %q has no slug", path)
		}
		if _, dup := fs.tools[cfg.Slug]; dup {
			return nil, fmt.Errorf("duplicate tool slug %q in %q", cfg.Slug, path)
		}

		fs.tools[cfg.Slug] = cfg
		fs.order = append(fs.order, cfg.Slug)
	}

	sort.Strings(fs.order)
	log.Printf("Loaded %d tool configurations from %s", len(fs.tools), dir)
	return fs, nil
}

// Get returns the raw configuration for slug.
func (fs *FileStore) Get(slug string) (ToolConfig, error) {
	cfg, ok := fs.tools[slug]
	if !ok {
		return ToolConfig{}, fmt.Errorf("%w: %s", ErrToolNotFound, slug)
	}
	return cfg, nil
}

// List returns every configuration sorted by slug.
func (fs *FileStore) List() []ToolConfig {
	out := make([]ToolConfig, 0, len(fs.order))
	for _, slug := range fs.order {
		out = append(out, fs.tools[slug])
	}
	return out
}
