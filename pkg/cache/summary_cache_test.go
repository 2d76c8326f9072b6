package cache

import (
	"testing"
	"time"

	"github.com/stayloop/loyalty-ledger-common/pkg/domain"
)

func testSummary(userID string, points int64) *domain.RewardsSummary {
	return &domain.RewardsSummary{
		UserID: userID,
		Points: points,
		Tier:   &domain.RewardTier{Name: "Bronze", MinPoints: 0, Multiplier: 1.0},
	}
}

// set stores a summary at the user's current generation.
func set(sc *SummaryCache, userID string, summary *domain.RewardsSummary) {
	sc.Set(userID, summary, sc.Generation(userID))
}

func TestSummaryCache_GetSet(t *testing.T) {
	sc := NewSummaryCache(10, time.Minute)

	if got := sc.Get("user-1"); got != nil {
		t.Errorf("Get() on empty cache = %v, want nil", got)
	}

	set(sc, "user-1", testSummary("user-1", 350))

	got := sc.Get("user-1")
	if got == nil {
		t.Fatal("Get() returned nil for cached entry")
	}
	if got.Points != 350 {
		t.Errorf("Points = %d, want 350", got.Points)
	}
}

func TestSummaryCache_Expiry(t *testing.T) {
	// Zero TTL means every entry is expired on first read
	sc := NewSummaryCache(10, 0)

	set(sc, "user-1", testSummary("user-1", 350))

	if got := sc.Get("user-1"); got != nil {
		t.Errorf("Get() after expiry = %v, want nil", got)
	}

	// Expired entries are evicted on read
	if sc.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after expired read", sc.Len())
	}
}

func TestSummaryCache_Invalidate(t *testing.T) {
	sc := NewSummaryCache(10, time.Minute)

	set(sc, "user-1", testSummary("user-1", 350))
	set(sc, "user-2", testSummary("user-2", 900))

	sc.Invalidate("user-1")

	if got := sc.Get("user-1"); got != nil {
		t.Errorf("Get() after Invalidate = %v, want nil", got)
	}
	if got := sc.Get("user-2"); got == nil {
		t.Error("Invalidate should not affect other users")
	}
}

func TestSummaryCache_StaleGenerationNotStored(t *testing.T) {
	sc := NewSummaryCache(10, time.Minute)

	// A reader captures the generation, then a ledger write invalidates
	// the user before the reader finishes building its summary
	gen := sc.Generation("user-1")
	sc.Invalidate("user-1")

	sc.Set("user-1", testSummary("user-1", 350), gen)

	if got := sc.Get("user-1"); got != nil {
		t.Errorf("stale-generation Set should be dropped, got %v", got)
	}

	// A summary built after the invalidation stores normally
	set(sc, "user-1", testSummary("user-1", 500))
	got := sc.Get("user-1")
	if got == nil {
		t.Fatal("current-generation Set should be stored")
	}
	if got.Points != 500 {
		t.Errorf("Points = %d, want 500", got.Points)
	}
}

func TestSummaryCache_BoundedSize(t *testing.T) {
	sc := NewSummaryCache(2, time.Minute)

	set(sc, "user-1", testSummary("user-1", 1))
	set(sc, "user-2", testSummary("user-2", 2))
	set(sc, "user-3", testSummary("user-3", 3))

	if sc.Len() != 2 {
		t.Errorf("Len() = %d, want 2 after overflow", sc.Len())
	}

	// Oldest entry is evicted first
	if got := sc.Get("user-1"); got != nil {
		t.Errorf("user-1 should have been evicted, got %v", got)
	}
	if got := sc.Get("user-3"); got == nil {
		t.Error("user-3 should still be cached")
	}
}

func TestSummaryCache_NonPositiveSizeClamped(t *testing.T) {
	for _, size := range []int{0, -5} {
		sc := NewSummaryCache(size, time.Minute)

		set(sc, "user-1", testSummary("user-1", 42))
		got := sc.Get("user-1")
		if got == nil {
			t.Fatalf("size %d: Get() returned nil, want stored entry", size)
		}
		if got.Points != 42 {
			t.Errorf("size %d: Points = %d, want 42", size, got.Points)
		}
		if sc.Len() != 1 {
			t.Errorf("size %d: Len() = %d, want 1", size, sc.Len())
		}
	}
}
