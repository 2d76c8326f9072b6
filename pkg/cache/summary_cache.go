package cache

import (
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/stayloop/loyalty-ledger-common/pkg/domain"
)

// cachedSummary represents a cached rewards summary entry
type cachedSummary struct {
	summary   *domain.RewardsSummary
	timestamp time.Time
}

// SummaryCache is a bounded LRU cache for per-user rewards summaries.
// Entries expire after the configured TTL and are invalidated eagerly
// whenever a user's ledger changes.
//
// A per-user generation counter fences slow readers: a summary built
// before an invalidation carries a stale generation and is never stored,
// so a concurrent credit cannot be shadowed by a pre-credit read.
type SummaryCache struct {
	cache  *lru.Cache
	expiry time.Duration
	gens   sync.Map // userID -> *atomic.Uint64
}

// NewSummaryCache creates a summary cache holding at most size entries,
// each valid for the given expiry duration. Non-positive sizes are
// clamped to a single entry.
func NewSummaryCache(size int, expiry time.Duration) *SummaryCache {
	if size <= 0 {
		size = 1
	}
	cache, _ := lru.New(size)
	return &SummaryCache{
		cache:  cache,
		expiry: expiry,
	}
}

func (sc *SummaryCache) gen(userID string) *atomic.Uint64 {
	g, _ := sc.gens.LoadOrStore(userID, &atomic.Uint64{})
	return g.(*atomic.Uint64)
}

// Generation returns the user's current invalidation generation. Capture
// it before reading the data a summary is built from, and pass it to Set.
func (sc *SummaryCache) Generation(userID string) uint64 {
	return sc.gen(userID).Load()
}

// Get returns the cached summary for a user, or nil if absent or expired.
func (sc *SummaryCache) Get(userID string) *domain.RewardsSummary {
	cached, ok := sc.cache.Get(userID)
	if !ok {
		return nil
	}

	c, ok := cached.(cachedSummary)
	if !ok {
		return nil
	}

	if time.Since(c.timestamp) >= sc.expiry {
		sc.cache.Remove(userID)
		return nil
	}

	return c.summary
}

// Set stores a freshly built summary for a user. The summary is dropped
// if the user was invalidated after gen was captured, since it may
// predate a ledger write.
func (sc *SummaryCache) Set(userID string, summary *domain.RewardsSummary, gen uint64) {
	if sc.gen(userID).Load() != gen {
		return
	}
	sc.cache.Add(userID, cachedSummary{
		summary:   summary,
		timestamp: time.Now(),
	})
}

// Invalidate drops the cached summary for a user and advances their
// generation. Called after every ledger write so reads never serve a
// stale balance.
func (sc *SummaryCache) Invalidate(userID string) {
	sc.gen(userID).Add(1)
	sc.cache.Remove(userID)
}

// Len returns the number of entries currently cached, expired or not.
func (sc *SummaryCache) Len() int {
	return sc.cache.Len()
}
