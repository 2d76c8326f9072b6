package cache

import (
	"log/slog"
	"sync"

	"github.com/stayloop/loyalty-ledger-common/pkg/config"
	"github.com/stayloop/loyalty-ledger-common/pkg/domain"
)

// InMemoryQuestCache provides O(1) in-memory lookups for quest and tier
// configurations. All indexes are built at startup and provide thread-safe
// read access. Reload swaps in a freshly validated catalog atomically.
type InMemoryQuestCache struct {
	questsByID       map[string]*domain.Quest                    // "quest-id" -> Quest
	questsByCategory map[domain.TriggerCategory][]*domain.Quest  // category -> active quests
	quests           []*domain.Quest                             // All quests (catalog order)
	tiers            []*domain.RewardTier                        // Ordered tier table
	catalogPath      string                                      // Path to catalog file (for reload)
	mu               sync.RWMutex                                // Protects all indexes
	logger           *slog.Logger
}

// NewInMemoryQuestCache creates a new cache from the provided catalog.
// The cache is immediately built and ready for lookups.
//
// Parameters:
//   - catalog: Validated catalog containing quests and tiers
//   - catalogPath: Path to catalog file (used for reload operation)
//   - logger: Structured logger for operational logging
func NewInMemoryQuestCache(catalog *config.Catalog, catalogPath string, logger *slog.Logger) *InMemoryQuestCache {
	cache := &InMemoryQuestCache{
		catalogPath: catalogPath,
		logger:      logger,
	}

	cache.buildCache(catalog)

	return cache
}

// buildCache constructs all cache indexes from the catalog.
// This method is called during construction and reload.
// It replaces all existing cache data.
func (c *InMemoryQuestCache) buildCache(catalog *config.Catalog) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.questsByID = make(map[string]*domain.Quest, len(catalog.Quests))
	c.questsByCategory = make(map[domain.TriggerCategory][]*domain.Quest)
	c.quests = make([]*domain.Quest, 0, len(catalog.Quests))
	c.tiers = catalog.Tiers

	for _, quest := range catalog.Quests {
		c.questsByID[quest.ID] = quest
		c.quests = append(c.quests, quest)

		// Only active quests participate in progress tracking
		if quest.IsActive {
			c.questsByCategory[quest.TriggerCategory] = append(c.questsByCategory[quest.TriggerCategory], quest)
		}
	}

	c.logger.Info("Quest cache built successfully",
		"quests", len(c.quests),
		"categories", len(c.questsByCategory),
		"tiers", len(c.tiers),
	)
}

// GetQuestByID retrieves a quest by its unique ID.
// Returns nil if the quest does not exist.
func (c *InMemoryQuestCache) GetQuestByID(questID string) *domain.Quest {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.questsByID[questID]
}

// GetActiveQuestsByCategory retrieves all active quests for a trigger category.
// Returns an empty slice if no active quests match.
func (c *InMemoryQuestCache) GetActiveQuestsByCategory(category domain.TriggerCategory) []*domain.Quest {
	c.mu.RLock()
	defer c.mu.RUnlock()

	quests := c.questsByCategory[category]
	if quests == nil {
		return []*domain.Quest{}
	}

	// Safe to return directly - quests are immutable after load
	return quests
}

// GetAllQuests retrieves all configured quests in catalog order.
func (c *InMemoryQuestCache) GetAllQuests() []*domain.Quest {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.quests
}

// GetActiveQuests retrieves all active quests in catalog order.
func (c *InMemoryQuestCache) GetActiveQuests() []*domain.Quest {
	c.mu.RLock()
	defer c.mu.RUnlock()

	active := make([]*domain.Quest, 0, len(c.quests))
	for _, quest := range c.quests {
		if quest.IsActive {
			active = append(active, quest)
		}
	}

	return active
}

// Tiers returns the ordered reward tier table.
func (c *InMemoryQuestCache) Tiers() []*domain.RewardTier {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.tiers
}

// Reload reloads the cache from the catalog file.
// On failure the previous cache contents remain in place.
func (c *InMemoryQuestCache) Reload() error {
	loader := config.NewCatalogLoader(c.catalogPath, c.logger)
	newCatalog, err := loader.LoadCatalog()
	if err != nil {
		return err
	}

	c.buildCache(newCatalog)

	c.logger.Info("Quest cache reloaded successfully")

	return nil
}
