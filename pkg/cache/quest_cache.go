package cache

import "github.com/stayloop/loyalty-ledger-common/pkg/domain"

// QuestCache provides O(1) in-memory lookups for quest and tier configurations.
// This cache is built at application startup from the catalog.json config file.
// All lookups are read-only and thread-safe.
type QuestCache interface {
	// GetQuestByID retrieves a quest by its unique ID.
	// Returns nil if the quest does not exist.
	// Time complexity: O(1)
	GetQuestByID(questID string) *domain.Quest

	// GetActiveQuestsByCategory retrieves all active quests triggered by a
	// specific activity category. Multiple quests can share a category
	// (e.g., a one-shot and a weekly quest both tracking bookings).
	// Returns empty slice if no active quests match.
	// Time complexity: O(1)
	GetActiveQuestsByCategory(category domain.TriggerCategory) []*domain.Quest

	// GetAllQuests retrieves all configured quests in catalog order,
	// including inactive ones.
	// Time complexity: O(1)
	GetAllQuests() []*domain.Quest

	// GetActiveQuests retrieves all active quests in catalog order.
	// Used by the quest board view.
	// Time complexity: O(n) where n is total number of quests
	GetActiveQuests() []*domain.Quest

	// Tiers returns the ordered reward tier table (ascending by min_points).
	// Time complexity: O(1)
	Tiers() []*domain.RewardTier

	// Reload reloads the cache from the catalog file.
	// Returns error if the catalog cannot be read or is invalid; the
	// previous cache contents are kept on failure.
	Reload() error
}
