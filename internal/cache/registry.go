package cache

import (
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/manonja/quickExpense-sub001/internal/common"
)

// Key identifies a cache by its backing files.
type Key struct {
	RulesPath     string
	CitationsPath string
}

// KeyFor builds the registry key for opts.
func KeyFor(opts Options) Key {
	return Key{
		RulesPath:     cleanPath(opts.RulesPath),
		CitationsPath: cleanPath(opts.CitationsPath),
	}
}

func cleanPath(p string) string {
	if p == "" {
		return ""
	}
	return filepath.Clean(p)
}

// Registry hands out one RuleCache per configuration identity. It is created
// at startup and passed to whoever needs a cache.
type Registry struct {
	caches map[Key]*RuleCache
	logger *slog.Logger
	mu     sync.Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		caches: make(map[Key]*RuleCache),
		logger: common.OrDefault(logger),
	}
}

// Get returns the cache for opts, creating it on first request. Later calls
// with the same key return the existing cache and ignore the other options.
func (r *Registry) Get(opts Options) *RuleCache {
	key := KeyFor(opts)

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.caches[key]; ok {
		return c
	}

	c := New(opts, r.logger)
	r.caches[key] = c
	return c
}

// Keys returns the registered keys in a stable order.
func (r *Registry) Keys() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]Key, 0, len(r.caches))
	for k := range r.caches {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].RulesPath != keys[j].RulesPath {
			return keys[i].RulesPath < keys[j].RulesPath
		}
		return keys[i].CitationsPath < keys[j].CitationsPath
	})
	return keys
}

// Len returns the number of caches.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.caches)
}
