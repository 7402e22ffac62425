package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jcleary-au/racewatch/internal/domain"
)

// dedupExpiryGrace keeps a key alive past its race's start so late price
// updates for a just-jumped race cannot re-alert.
const dedupExpiryGrace = 2 * time.Hour

// minDedupTTL is the floor applied when a race start is already past or
// unknown.
const minDedupTTL = 10 * time.Minute

// commands is the slice of the go-redis API the registry uses. *redis.Client
// satisfies it; tests substitute a fake returning canned Cmd results.
type commands interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// DedupRegistry implements domain.DedupRegistry on Redis. Each emitted key is
// stored under "opp:{race}:{runner}:{bookmaker}" via SET NX, which gives the
// atomic check-and-set across processes. Unlike the in-memory registry, keys
// expire once the race is comfortably over, so the key space does not grow
// without bound.
type DedupRegistry struct {
	rdb    commands
	prefix string

	now func() time.Time
}

// NewDedupRegistry creates a DedupRegistry backed by the given Client.
func NewDedupRegistry(c *Client) *DedupRegistry {
	return &DedupRegistry{rdb: c.Underlying(), prefix: "opp:", now: time.Now}
}

func (r *DedupRegistry) key(k domain.OpportunityKey) string {
	return r.prefix + k.String()
}

// ttlFor derives the key lifetime from the race start: long enough to outlive
// the race plus the grace window, never below the floor.
func (r *DedupRegistry) ttlFor(raceStart time.Time) time.Duration {
	ttl := minDedupTTL
	if !raceStart.IsZero() {
		if until := raceStart.Sub(r.now()) + dedupExpiryGrace; until > ttl {
			ttl = until
		}
	}
	return ttl
}

// ShouldEmit records the key with SET NX and a TTL derived from the race
// start time. It returns true only for the caller that created the key.
func (r *DedupRegistry) ShouldEmit(ctx context.Context, key domain.OpportunityKey, raceStart time.Time) (bool, error) {
	created, err := r.rdb.SetNX(ctx, r.key(key), r.now().UTC().Format(time.RFC3339), r.ttlFor(raceStart)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: dedup set %s: %w", key, err)
	}
	return created, nil
}

// Len counts the currently live dedup keys by scanning the prefix. This is a
// stats-only operation and tolerates being approximate under concurrent
// writes.
func (r *DedupRegistry) Len(ctx context.Context) (int, error) {
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, r.prefix+"*", 500).Result()
		if err != nil {
			return 0, fmt.Errorf("redis: dedup scan: %w", err)
		}
		count += len(keys)
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}

var _ domain.DedupRegistry = (*DedupRegistry)(nil)
