package repository

import (
	"context"

	"github.com/stayloop/loyalty-ledger-common/pkg/domain"
)

// LedgerRepository defines the interface for persisting quest progress,
// the append-only reward ledger, loyalty balances, and badge grants.
// This interface abstracts database operations to allow for testing and
// different implementations.
type LedgerRepository interface {
	// GetProgress retrieves a single user's progress for a specific quest.
	// Returns nil if no progress record exists (lazy initialization).
	GetProgress(ctx context.Context, userID, questID string) (*domain.QuestProgress, error)

	// GetUserProgress retrieves all quest progress records for a specific user.
	// Returns empty slice if user has no progress records.
	GetUserProgress(ctx context.Context, userID string) ([]*domain.QuestProgress, error)

	// UpsertProgress creates or updates a single quest progress record.
	// Uses INSERT ... ON CONFLICT (user_id, quest_id) DO UPDATE.
	UpsertProgress(ctx context.Context, progress *domain.QuestProgress) error

	// GetBalance retrieves a user's loyalty balance row.
	// Returns ErrUserNotFound if the user has never been provisioned.
	GetBalance(ctx context.Context, userID string) (*domain.UserLoyalty, error)

	// UpdateBalance replaces a user's balance and tier, but only if the
	// stored balance still equals prevPoints. Returns ErrConflict if another
	// writer got there first; callers retry the whole crediting sequence.
	UpdateBalance(ctx context.Context, userID string, prevPoints, newPoints int64, tier string) error

	// CreateUser provisions the balance row for a new user with zero points.
	// Idempotent: provisioning an existing user is a no-op.
	CreateUser(ctx context.Context, userID, tier string) error

	// AppendTransaction appends one immutable entry to the reward ledger.
	// The entry's ID is assigned by the store and written back.
	AppendTransaction(ctx context.Context, txn *domain.RewardTransaction) error

	// RecentTransactions retrieves a user's most recent ledger entries,
	// newest first. Returns empty slice if the ledger is empty.
	RecentTransactions(ctx context.Context, userID string, limit int) ([]*domain.RewardTransaction, error)

	// AllTransactions retrieves a user's full ledger in chain order
	// (occurred_at, id ascending). Used for balance reconstruction.
	AllTransactions(ctx context.Context, userID string) ([]*domain.RewardTransaction, error)

	// GrantBadge records a badge grant. Returns true if the badge was newly
	// granted, false if the user already held it (idempotent no-op).
	GrantBadge(ctx context.Context, badge *domain.UserBadge) (bool, error)

	// GetUserBadges retrieves all badges held by a user, oldest first.
	GetUserBadges(ctx context.Context, userID string) ([]*domain.UserBadge, error)

	// BeginTx starts a database transaction and returns a transactional
	// repository. Used for the crediting flow to ensure the progress write,
	// ledger append, and balance update commit or roll back together.
	BeginTx(ctx context.Context) (TxRepository, error)
}

// TxRepository represents a transactional repository that supports
// commit/rollback. Row-level locking prevents concurrent crediting
// attempts for the same user from double-spending a completion.
type TxRepository interface {
	LedgerRepository

	// GetProgressForUpdate retrieves progress with SELECT ... FOR UPDATE
	// (row-level lock). This serializes concurrent trigger processing for
	// the same (user, quest) pair.
	GetProgressForUpdate(ctx context.Context, userID, questID string) (*domain.QuestProgress, error)

	// GetBalanceForUpdate retrieves the balance row with SELECT ... FOR UPDATE.
	GetBalanceForUpdate(ctx context.Context, userID string) (*domain.UserLoyalty, error)

	// Commit commits the transaction.
	Commit() error

	// Rollback rolls back the transaction.
	Rollback() error
}
