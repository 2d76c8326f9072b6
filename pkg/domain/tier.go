package domain

import "errors"

// ErrEmptyTierTable is returned when tier math is attempted against an empty
// tier table. An empty table is a configuration error surfaced to the caller,
// never silently defaulted.
var ErrEmptyTierTable = errors.New("tier table is empty")

// TierProgress describes how far a user is from the next tier.
type TierProgress struct {
	NextTier        *RewardTier `json:"next_tier"`
	PointsRemaining int64       `json:"points_remaining"`
}

// TierFor returns the highest tier whose MinPoints <= points, given tiers
// sorted ascending by MinPoints. A balance below the lowest tier's MinPoints
// (possible after adjustment debits) maps to the lowest tier.
func TierFor(points int64, tiers []*RewardTier) (*RewardTier, error) {
	if len(tiers) == 0 {
		return nil, ErrEmptyTierTable
	}

	current := tiers[0]
	for _, tier := range tiers[1:] {
		if tier.MinPoints <= points {
			current = tier
		}
	}
	return current, nil
}

// ProgressToNext returns the next tier above the user's balance and the
// points remaining to reach it. Returns nil when the user is already at the
// top tier.
func ProgressToNext(points int64, tiers []*RewardTier) (*TierProgress, error) {
	if len(tiers) == 0 {
		return nil, ErrEmptyTierTable
	}

	for _, tier := range tiers {
		if tier.MinPoints > points {
			remaining := tier.MinPoints - points
			if remaining < 0 {
				remaining = 0
			}
			return &TierProgress{NextTier: tier, PointsRemaining: remaining}, nil
		}
	}
	return nil, nil
}
