package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jcleary-au/racewatch/internal/domain"
)

var testNow = time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)

// fakeCommands emulates SET NX and SCAN over an in-memory key set, recording
// the TTL each key was stored with.
type fakeCommands struct {
	ttls      map[string]time.Duration
	setErr    error
	scanPages [][]string
	scanCalls int
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{ttls: make(map[string]time.Duration)}
}

func (f *fakeCommands) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	if f.setErr != nil {
		return redis.NewBoolResult(false, f.setErr)
	}
	if _, exists := f.ttls[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	f.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	page := f.scanPages[f.scanCalls]
	f.scanCalls++
	var next uint64
	if f.scanCalls < len(f.scanPages) {
		next = uint64(f.scanCalls)
	}
	return redis.NewScanCmdResult(page, next, nil)
}

func newTestRegistry(fake *fakeCommands) *DedupRegistry {
	return &DedupRegistry{
		rdb:    fake,
		prefix: "opp:",
		now:    func() time.Time { return testNow },
	}
}

func TestShouldEmit_SetNXTrueExactlyOnce(t *testing.T) {
	fake := newFakeCommands()
	r := newTestRegistry(fake)
	ctx := context.Background()
	key := domain.OpportunityKey{RaceID: "r1", RunnerID: "rn1", Bookmaker: "Sportsbet"}

	first, err := r.ShouldEmit(ctx, key, testNow.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("ShouldEmit: %v", err)
	}
	if !first {
		t.Fatal("first ShouldEmit = false, want true")
	}

	for i := 0; i < 3; i++ {
		again, err := r.ShouldEmit(ctx, key, testNow.Add(10*time.Minute))
		if err != nil {
			t.Fatalf("ShouldEmit: %v", err)
		}
		if again {
			t.Fatalf("call %d returned true for an already-stored key", i+2)
		}
	}

	if _, ok := fake.ttls["opp:r1:rn1:Sportsbet"]; !ok {
		t.Errorf("stored keys = %v, want opp:r1:rn1:Sportsbet", fake.ttls)
	}
}

func TestShouldEmit_TTLDerivation(t *testing.T) {
	tests := []struct {
		name      string
		raceStart time.Time
		want      time.Duration
	}{
		{"future race outlives start plus grace", testNow.Add(30 * time.Minute), 30*time.Minute + dedupExpiryGrace},
		{"zero start gets the floor", time.Time{}, minDedupTTL},
		{"long-finished race gets the floor", testNow.Add(-3 * time.Hour), minDedupTTL},
		{"just-jumped race keeps most of the grace", testNow.Add(-5 * time.Minute), -5*time.Minute + dedupExpiryGrace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeCommands()
			r := newTestRegistry(fake)
			key := domain.OpportunityKey{RaceID: "r1", RunnerID: "rn1", Bookmaker: "Tab"}

			if _, err := r.ShouldEmit(context.Background(), key, tt.raceStart); err != nil {
				t.Fatalf("ShouldEmit: %v", err)
			}
			if got := fake.ttls["opp:r1:rn1:Tab"]; got != tt.want {
				t.Errorf("ttl = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestShouldEmit_ErrorPropagated(t *testing.T) {
	fake := newFakeCommands()
	fake.setErr = errors.New("connection refused")
	r := newTestRegistry(fake)

	ok, err := r.ShouldEmit(context.Background(), domain.OpportunityKey{RaceID: "r1"}, testNow)
	if err == nil {
		t.Fatal("ShouldEmit returned nil error")
	}
	if ok {
		t.Error("ShouldEmit = true on backend error, want false")
	}
}

func TestLen_PagesThroughScan(t *testing.T) {
	fake := newFakeCommands()
	fake.scanPages = [][]string{
		{"opp:a", "opp:b"},
		{"opp:c"},
	}
	r := newTestRegistry(fake)

	n, err := r.Len(context.Background())
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 3 {
		t.Errorf("Len = %d, want 3", n)
	}
	if fake.scanCalls != 2 {
		t.Errorf("scan calls = %d, want 2", fake.scanCalls)
	}
}
