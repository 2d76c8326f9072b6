package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TriggerCategory defines which domain event stream advances progress for a quest.
// A single trigger may match zero, one, or several quests in the same category.
type TriggerCategory string

const (
	// TriggerBooking fires when a booking is created or completed.
	TriggerBooking TriggerCategory = "BOOKING"

	// TriggerReview fires when a user publishes a review.
	TriggerReview TriggerCategory = "REVIEW"

	// TriggerExploration fires when a user browses or saves new listings.
	TriggerExploration TriggerCategory = "EXPLORATION"

	// TriggerProfileCompletion fires when a user completes a profile section.
	TriggerProfileCompletion TriggerCategory = "PROFILE_COMPLETION"

	// TriggerSocial fires on social interactions (shares, follows, invites).
	TriggerSocial TriggerCategory = "SOCIAL"

	// TriggerDailyCheckIn fires when a user opens the app and checks in.
	TriggerDailyCheckIn TriggerCategory = "DAILY_CHECK_IN"

	// TriggerReferral fires when a referred user completes signup or first booking.
	TriggerReferral TriggerCategory = "REFERRAL"

	// TriggerStreak fires when an activity streak milestone is reported.
	TriggerStreak TriggerCategory = "STREAK"
)

// IsValid returns true if the trigger category is a known type.
func (c TriggerCategory) IsValid() bool {
	switch c {
	case TriggerBooking, TriggerReview, TriggerExploration, TriggerProfileCompletion,
		TriggerSocial, TriggerDailyCheckIn, TriggerReferral, TriggerStreak:
		return true
	default:
		return false
	}
}

// Recurrence defines how often a quest's progress window resets.
//
// Usage in progress tracking:
//   - NONE: one-shot quest; once completed it stays completed forever
//   - DAILY: progress resets on the first trigger >= 24h after lastResetAt
//   - WEEKLY: progress resets on the first trigger >= 168h after lastResetAt
//
// Windows are rolling (measured from lastResetAt), not calendar-aligned.
type Recurrence string

const (
	// RecurrenceNone marks a one-shot quest that can be completed at most once, ever.
	RecurrenceNone Recurrence = "NONE"

	// RecurrenceDaily marks a quest repeatable once per rolling 24-hour window.
	RecurrenceDaily Recurrence = "DAILY"

	// RecurrenceWeekly marks a quest repeatable once per rolling 168-hour window.
	RecurrenceWeekly Recurrence = "WEEKLY"
)

// IsValid returns true if the recurrence is a known type.
func (r Recurrence) IsValid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly:
		return true
	default:
		return false
	}
}

// Quest represents a single admin-authored quest definition.
// Definitions are immutable per version; they are soft-disabled via IsActive
// and never deleted while progress rows reference them.
type Quest struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	TriggerCategory TriggerCategory `json:"trigger_category"`
	TargetCount     int             `json:"target_count"`
	RewardPoints    int64           `json:"reward_points"`
	Recurrence      Recurrence      `json:"recurrence"`
	RewardBadgeID   string          `json:"reward_badge_id,omitempty"`
	IsActive        bool            `json:"is_active"`
}

// QuestProgress tracks a user's progress toward completing a specific quest.
// Rows are lazily initialized (created on-demand when the first matching
// trigger arrives) and are overwritten each epoch for repeatable quests;
// per-epoch history is reconstructable from the ledger, not from this row.
type QuestProgress struct {
	UserID       string     `json:"user_id" db:"user_id"`
	QuestID      string     `json:"quest_id" db:"quest_id"`
	CurrentCount int        `json:"current_count" db:"current_count"`
	IsCompleted  bool       `json:"is_completed" db:"is_completed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	LastResetAt  time.Time  `json:"last_reset_at" db:"last_reset_at"`
	Metadata     Metadata   `json:"metadata,omitempty" db:"metadata"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// MeetsTarget returns true if the current count satisfies the quest's target.
func (p *QuestProgress) MeetsTarget(targetCount int) bool {
	return p.CurrentCount >= targetCount
}

// ProgressPercent returns the completion percentage capped at 100.
func (p *QuestProgress) ProgressPercent(targetCount int) float64 {
	if targetCount <= 0 {
		return 0
	}
	percent := float64(p.CurrentCount) / float64(targetCount) * 100
	if percent > 100 {
		percent = 100
	}
	return percent
}

// TransactionKind defines the direction of a ledger entry.
type TransactionKind string

const (
	// TransactionCredit adds points to the user's balance.
	TransactionCredit TransactionKind = "CREDIT"

	// TransactionDebit removes points from the user's balance.
	TransactionDebit TransactionKind = "DEBIT"
)

// IsValid returns true if the kind is a known type.
func (k TransactionKind) IsValid() bool {
	switch k {
	case TransactionCredit, TransactionDebit:
		return true
	default:
		return false
	}
}

// TransactionSource identifies the collaborator that produced a ledger entry.
type TransactionSource string

const (
	SourceQuest      TransactionSource = "QUEST"
	SourceMembership TransactionSource = "MEMBERSHIP"
	SourceBooking    TransactionSource = "BOOKING"
	SourceRedemption TransactionSource = "REDEMPTION"
	SourceAdjustment TransactionSource = "ADJUSTMENT"
)

// IsValid returns true if the source is a known type.
func (s TransactionSource) IsValid() bool {
	switch s {
	case SourceQuest, SourceMembership, SourceBooking, SourceRedemption, SourceAdjustment:
		return true
	default:
		return false
	}
}

// Label returns a human-readable description of the source for display.
func (s TransactionSource) Label() string {
	switch s {
	case SourceQuest:
		return "Quest reward"
	case SourceMembership:
		return "Membership bonus"
	case SourceBooking:
		return "Booking reward"
	case SourceRedemption:
		return "Points redemption"
	case SourceAdjustment:
		return "Manual adjustment"
	default:
		return string(s)
	}
}

// RewardTransaction is a single append-only ledger entry. Immutable once
// written. For a given user, ordering all entries by (occurred_at, id)
// ascending, BalanceAfter[i] = BalanceAfter[i-1] + SignedPoints()[i]
// with BalanceAfter[-1] = 0.
type RewardTransaction struct {
	ID           int64             `json:"id" db:"id"`
	UserID       string            `json:"user_id" db:"user_id"`
	Kind         TransactionKind   `json:"kind" db:"kind"`
	Source       TransactionSource `json:"source" db:"source"`
	Points       int64             `json:"points" db:"points"` // positive magnitude; sign implied by Kind
	BalanceAfter int64             `json:"balance_after" db:"balance_after"`
	OccurredAt   time.Time         `json:"occurred_at" db:"occurred_at"`
	Description  string            `json:"description" db:"description"`
	Metadata     Metadata          `json:"metadata,omitempty" db:"metadata"`
}

// SignedPoints returns the balance delta this entry applies.
func (t *RewardTransaction) SignedPoints() int64 {
	if t.Kind == TransactionDebit {
		return -t.Points
	}
	return t.Points
}

// UserLoyalty is the cached balance row for a user. LoyaltyPoints always
// equals the BalanceAfter of the user's most recent ledger entry (or 0 if
// none exists) and LoyaltyTier always equals TierFor(LoyaltyPoints).
// Both are updated atomically with the ledger append that produced them.
type UserLoyalty struct {
	UserID        string    `json:"user_id" db:"user_id"`
	LoyaltyPoints int64     `json:"loyalty_points" db:"loyalty_points"`
	LoyaltyTier   string    `json:"loyalty_tier" db:"loyalty_tier"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// RewardTier is one level of the ordered tier table. Static configuration,
// read-only to this engine. MaxPoints is implied by the next tier's MinPoints
// and kept nil for the top tier.
type RewardTier struct {
	Name       string   `json:"name"`
	MinPoints  int64    `json:"min_points"`
	MaxPoints  *int64   `json:"max_points,omitempty"`
	Benefits   []string `json:"benefits,omitempty"`
	Multiplier float64  `json:"multiplier"`
}

// UserBadge records an idempotent badge grant keyed by (user_id, badge_id).
// Never mutated after creation except for metadata enrichment.
type UserBadge struct {
	UserID    string    `json:"user_id" db:"user_id"`
	BadgeID   string    `json:"badge_id" db:"badge_id"`
	GrantedAt time.Time `json:"granted_at" db:"granted_at"`
	Metadata  Metadata  `json:"metadata,omitempty" db:"metadata"`
}

// Metadata is an opaque, schema-less key/value bag attached to ledger and
// progress rows. Engine logic never interprets it; only external read views do.
type Metadata map[string]any

// Value implements driver.Valuer so Metadata persists as JSONB.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for reading JSONB columns.
func (m *Metadata) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
}

// QuestProgressReport is the per-quest result returned to trigger callers.
type QuestProgressReport struct {
	QuestID         string  `json:"quest_id"`
	CurrentCount    int     `json:"current_count"`
	TargetCount     int     `json:"target_count"`
	IsCompleted     bool    `json:"is_completed"`
	ProgressPercent float64 `json:"progress_percent"`
	PointsEarned    int64   `json:"points_earned"`
}

// LedgerEntry pairs a ledger row with its display label for read views.
type LedgerEntry struct {
	*RewardTransaction
	SourceLabel string `json:"source_label"`
}

// RewardsSummary assembles a user's current loyalty state for display.
type RewardsSummary struct {
	UserID      string         `json:"user_id"`
	Points      int64          `json:"points"`
	Tier        *RewardTier    `json:"tier"`
	NextTier    *TierProgress  `json:"next_tier,omitempty"`
	Recent      []*LedgerEntry `json:"recent"`
	RetrievedAt time.Time      `json:"retrieved_at"`
}

// QuestBoardEntry is one row of the quest board read view. A quest the user
// has no progress row for yet is reported with a zero count; viewing the
// board never creates rows, resets progress, or credits points.
type QuestBoardEntry struct {
	Quest           *Quest  `json:"quest"`
	CurrentCount    int     `json:"current_count"`
	TargetCount     int     `json:"target_count"`
	IsCompleted     bool    `json:"is_completed"`
	ProgressPercent float64 `json:"progress_percent"`
}
