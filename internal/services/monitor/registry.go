// Package monitor tracks the fund codes clients are actively polling.
package monitor

import (
	"sort"
	"sync"
)

// Registry is the set of codes polled during the current trading session.
// Entries do not expire individually; the whole set is cleared when the
// session ends and codes are re-added by the next request.
type Registry struct {
	mu    sync.RWMutex
	codes map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{codes: make(map[string]struct{})}
}

// Add marks code as actively monitored. Reports whether it was newly added.
func (r *Registry) Add(code string) bool {
	if code == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codes[code]; ok {
		return false
	}
	r.codes[code] = struct{}{}
	return true
}

// Contains reports whether code is monitored.
func (r *Registry) Contains(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.codes[code]
	return ok
}

// Snapshot returns the monitored codes in sorted order.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.codes))
	for code := range r.codes {
		out = append(out, code)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Len returns the number of monitored codes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.codes)
}

// Clear empties the registry and returns how many codes were dropped.
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.codes)
	if n > 0 {
		r.codes = make(map[string]struct{})
	}
	return n
}
