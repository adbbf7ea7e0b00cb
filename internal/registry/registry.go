// Package registry keeps recently processed documents in memory so that
// follow-up requests (entities, overlays, exports, the live viewer) can refer
// to them by id.
package registry

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned for unknown or expired ids.
var ErrNotFound = errors.New("document not found")

// Defaults used when Config leaves a field zero.
const (
	DefaultMaxEntries = 100
	DefaultTTL        = time.Hour
)

// Config bounds the registry.
type Config struct {
	MaxEntries int
	TTL        time.Duration
}

type entry[T any] struct {
	value    T
	storedAt time.Time
}

// Registry is a bounded, expiring map. When full, the oldest entry is evicted.
type Registry[T any] struct {
	mu      sync.RWMutex
	cfg     Config
	entries map[string]entry[T]
	order   []string
	now     func() time.Time
}

// New creates a registry.
func New[T any](cfg Config) *Registry[T] {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Registry[T]{
		cfg:     cfg,
		entries: make(map[string]entry[T]),
		now:     time.Now,
	}
}

// Put stores value under id, replacing any previous value.
func (r *Registry[T]) Put(id string, value T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()
	if _, ok := r.entries[id]; ok {
		r.removeLocked(id)
	}
	for len(r.order) >= r.cfg.MaxEntries {
		r.removeLocked(r.order[0])
	}
	r.entries[id] = entry[T]{value: value, storedAt: r.now()}
	r.order = append(r.order, id)
}

// Get returns the value for id or ErrNotFound.
func (r *Registry[T]) Get(id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok || r.expired(e) {
		var zero T
		return zero, ErrNotFound
	}
	return e.value, nil
}

// Delete removes id. It reports whether the id was present.
func (r *Registry[T]) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return false
	}
	r.removeLocked(id)
	return true
}

// Len returns the number of live entries.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()
	return len(r.entries)
}

// Prune drops expired entries and returns how many were removed.
func (r *Registry[T]) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pruneLocked()
}

func (r *Registry[T]) expired(e entry[T]) bool {
	return r.now().Sub(e.storedAt) > r.cfg.TTL
}

// pruneLocked relies on order being sorted by storedAt.
func (r *Registry[T]) pruneLocked() int {
	n := 0
	for len(r.order) > 0 {
		id := r.order[0]
		if !r.expired(r.entries[id]) {
			break
		}
		r.removeLocked(id)
		n++
	}
	return n
}

func (r *Registry[T]) removeLocked(id string) {
	delete(r.entries, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}
