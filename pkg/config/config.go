package config

import "github.com/stayloop/loyalty-ledger-common/pkg/domain"

// Catalog represents the top-level quest and tier configuration loaded from
// catalog.json. This structure is parsed from JSON and validated during
// application startup.
type Catalog struct {
	Quests []*domain.Quest      `json:"quests"`
	Tiers  []*domain.RewardTier `json:"tiers"`
}
