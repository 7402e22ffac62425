package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/jcleary-au/racewatch/internal/domain"
)

// MemoryRegistry is the in-process dedup registry: a set of emitted
// opportunity keys guarded by a mutex. Keys are never evicted; state lives
// exactly as long as the process, matching the one-alert-per-run contract.
type MemoryRegistry struct {
	mu   sync.Mutex
	seen map[domain.OpportunityKey]struct{}
}

// NewMemoryRegistry returns an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{seen: make(map[domain.OpportunityKey]struct{})}
}

// ShouldEmit returns true and records the key if it has not been seen before.
// The check and the set happen under one lock, so concurrent callers with the
// same key cannot both get true.
func (r *MemoryRegistry) ShouldEmit(_ context.Context, key domain.OpportunityKey, _ time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[key]; ok {
		return false, nil
	}
	r.seen[key] = struct{}{}
	return true, nil
}

// Len returns the number of recorded keys.
func (r *MemoryRegistry) Len(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen), nil
}

var _ domain.DedupRegistry = (*MemoryRegistry)(nil)
