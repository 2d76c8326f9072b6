package config

import (
	"errors"
	"fmt"

	"github.com/stayloop/loyalty-ledger-common/pkg/domain"
)

// Validator validates quest catalog configuration files.
// It ensures all business rules are met before the application starts.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate performs comprehensive validation of the catalog.
// It checks for:
// - At least one quest exists
// - All quest IDs are unique
// - All quest fields are valid (category, counts, recurrence)
// - The tier table is non-empty, strictly ascending, and anchored at or below zero
//
// Returns an error describing the first validation failure encountered.
func (v *Validator) Validate(catalog *Catalog) error {
	if len(catalog.Quests) == 0 {
		return errors.New("catalog must have at least one quest")
	}

	questIDs := make(map[string]bool)
	for _, quest := range catalog.Quests {
		if err := v.validateQuest(quest); err != nil {
			return fmt.Errorf("invalid quest '%s': %w", quest.ID, err)
		}

		if questIDs[quest.ID] {
			return fmt.Errorf("duplicate quest ID: %s", quest.ID)
		}
		questIDs[quest.ID] = true
	}

	return v.validateTiers(catalog.Tiers)
}

// validateQuest validates a single quest definition.
func (v *Validator) validateQuest(quest *domain.Quest) error {
	if quest.ID == "" {
		return errors.New("quest ID cannot be empty")
	}
	if quest.Name == "" {
		return errors.New("quest name cannot be empty")
	}

	if quest.TriggerCategory == "" {
		return errors.New("trigger_category cannot be empty")
	}
	if !quest.TriggerCategory.IsValid() {
		return fmt.Errorf("invalid trigger_category '%s'", quest.TriggerCategory)
	}

	if quest.TargetCount <= 0 {
		return errors.New("target_count must be positive")
	}
	if quest.RewardPoints < 0 {
		return errors.New("reward_points cannot be negative")
	}

	if quest.Recurrence == "" {
		return errors.New("recurrence cannot be empty")
	}
	if !quest.Recurrence.IsValid() {
		return fmt.Errorf("invalid recurrence '%s' (must be 'NONE', 'DAILY', or 'WEEKLY')", quest.Recurrence)
	}

	return nil
}

// validateTiers validates the ordered tier table.
func (v *Validator) validateTiers(tiers []*domain.RewardTier) error {
	if len(tiers) == 0 {
		return errors.New("tier table must have at least one tier")
	}

	if tiers[0].MinPoints > 0 {
		return fmt.Errorf("lowest tier '%s' must have min_points <= 0", tiers[0].Name)
	}

	names := make(map[string]bool)
	for i, tier := range tiers {
		if tier.Name == "" {
			return errors.New("tier name cannot be empty")
		}
		if names[tier.Name] {
			return fmt.Errorf("duplicate tier name: %s", tier.Name)
		}
		names[tier.Name] = true

		if tier.Multiplier <= 0 {
			return fmt.Errorf("tier '%s' multiplier must be positive", tier.Name)
		}

		if i > 0 && tier.MinPoints <= tiers[i-1].MinPoints {
			return fmt.Errorf("tier table must be strictly ascending by min_points: '%s' after '%s'",
				tier.Name, tiers[i-1].Name)
		}
	}

	return nil
}
