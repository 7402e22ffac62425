package domain

import (
	"context"
	"time"
)

// DedupRegistry tracks which opportunity keys have already been emitted.
// ShouldEmit is an atomic check-and-set: it returns true exactly once per key,
// recording the key as seen as a side effect. Implementations must be safe for
// concurrent use even though the baseline scan loop is single-writer.
//
// raceStart is the scheduled start time of the race the key belongs to;
// backends that evict (e.g. Redis) use it to expire keys once the race is
// over. The in-memory backend ignores it.
type DedupRegistry interface {
	ShouldEmit(ctx context.Context, key OpportunityKey, raceStart time.Time) (bool, error)
	// Len returns the number of keys currently recorded, for cycle stats.
	Len(ctx context.Context) (int, error)
}
