package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/stayloop/loyalty-ledger-common/pkg/domain"
	"github.com/stayloop/loyalty-ledger-common/pkg/errors"
)

// queryer abstracts *sql.DB and *sql.Tx so that query methods can be shared
// between the plain repository and its transactional variant.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// pgQueries holds every query implementation shared by PostgresLedgerRepository
// and PostgresTxRepository.
type pgQueries struct {
	q queryer
}

// PostgresLedgerRepository implements LedgerRepository using PostgreSQL.
type PostgresLedgerRepository struct {
	pgQueries
	db *sql.DB
}

// NewPostgresLedgerRepository creates a new PostgreSQL-backed ledger repository.
func NewPostgresLedgerRepository(db *sql.DB) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{
		pgQueries: pgQueries{q: db},
		db:        db,
	}
}

// BeginTx starts a database transaction and returns a transactional repository.
func (r *PostgresLedgerRepository) BeginTx(ctx context.Context) (TxRepository, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.ErrDatabaseError("begin transaction", err)
	}

	return &PostgresTxRepository{
		pgQueries: pgQueries{q: tx},
		tx:        tx,
	}, nil
}

// PostgresTxRepository implements TxRepository for transactional operations.
type PostgresTxRepository struct {
	pgQueries
	tx *sql.Tx
}

// BeginTx is not supported within a transaction.
func (r *PostgresTxRepository) BeginTx(ctx context.Context) (TxRepository, error) {
	return nil, fmt.Errorf("cannot begin nested transaction")
}

// Commit commits the transaction.
func (r *PostgresTxRepository) Commit() error {
	if err := r.tx.Commit(); err != nil {
		return errors.ErrDatabaseError("commit transaction", err)
	}
	return nil
}

// Rollback rolls back the transaction.
func (r *PostgresTxRepository) Rollback() error {
	if err := r.tx.Rollback(); err != nil {
		return errors.ErrDatabaseError("rollback transaction", err)
	}
	return nil
}

// GetProgressForUpdate retrieves progress with SELECT ... FOR UPDATE (row-level lock).
func (r *PostgresTxRepository) GetProgressForUpdate(ctx context.Context, userID, questID string) (*domain.QuestProgress, error) {
	return r.getProgress(ctx, userID, questID, true)
}

// GetBalanceForUpdate retrieves the balance row with SELECT ... FOR UPDATE.
func (r *PostgresTxRepository) GetBalanceForUpdate(ctx context.Context, userID string) (*domain.UserLoyalty, error) {
	return r.getBalance(ctx, userID, true)
}

// GetProgress retrieves a single user's progress for a specific quest.
func (s *pgQueries) GetProgress(ctx context.Context, userID, questID string) (*domain.QuestProgress, error) {
	return s.getProgress(ctx, userID, questID, false)
}

func (s *pgQueries) getProgress(ctx context.Context, userID, questID string, forUpdate bool) (*domain.QuestProgress, error) {
	query := `
		SELECT user_id, quest_id, current_count, is_completed, completed_at,
		       last_reset_at, metadata, created_at, updated_at
		FROM quest_progress
		WHERE user_id = $1 AND quest_id = $2
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var progress domain.QuestProgress
	err := s.q.QueryRowContext(ctx, query, userID, questID).Scan(
		&progress.UserID,
		&progress.QuestID,
		&progress.CurrentCount,
		&progress.IsCompleted,
		&progress.CompletedAt,
		&progress.LastResetAt,
		&progress.Metadata,
		&progress.CreatedAt,
		&progress.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil // No progress record exists (lazy initialization)
	}

	if err != nil {
		return nil, errors.ErrDatabaseError("get progress", err)
	}

	return &progress, nil
}

// GetUserProgress retrieves all quest progress records for a specific user.
func (s *pgQueries) GetUserProgress(ctx context.Context, userID string) ([]*domain.QuestProgress, error) {
	query := `
		SELECT user_id, quest_id, current_count, is_completed, completed_at,
		       last_reset_at, metadata, created_at, updated_at
		FROM quest_progress
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, errors.ErrDatabaseError("get user progress", err)
	}
	defer func() { _ = rows.Close() }()

	return scanProgressRows(rows)
}

// UpsertProgress creates or updates a single quest progress record.
func (s *pgQueries) UpsertProgress(ctx context.Context, progress *domain.QuestProgress) error {
	query := `
		INSERT INTO quest_progress (
			user_id, quest_id, current_count, is_completed,
			completed_at, last_reset_at, metadata, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW()
		)
		ON CONFLICT (user_id, quest_id) DO UPDATE SET
			current_count = EXCLUDED.current_count,
			is_completed = EXCLUDED.is_completed,
			completed_at = EXCLUDED.completed_at,
			last_reset_at = EXCLUDED.last_reset_at,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
	`

	_, err := s.q.ExecContext(ctx, query,
		progress.UserID,
		progress.QuestID,
		progress.CurrentCount,
		progress.IsCompleted,
		progress.CompletedAt,
		progress.LastResetAt,
		progress.Metadata,
	)

	if err != nil {
		return errors.ErrDatabaseError("upsert progress", err)
	}

	return nil
}

// GetBalance retrieves a user's loyalty balance row.
func (s *pgQueries) GetBalance(ctx context.Context, userID string) (*domain.UserLoyalty, error) {
	return s.getBalance(ctx, userID, false)
}

func (s *pgQueries) getBalance(ctx context.Context, userID string, forUpdate bool) (*domain.UserLoyalty, error) {
	query := `
		SELECT user_id, loyalty_points, loyalty_tier, updated_at
		FROM user_loyalty
		WHERE user_id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var balance domain.UserLoyalty
	err := s.q.QueryRowContext(ctx, query, userID).Scan(
		&balance.UserID,
		&balance.LoyaltyPoints,
		&balance.LoyaltyTier,
		&balance.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.ErrUserNotFound(userID)
	}

	if err != nil {
		return nil, errors.ErrDatabaseError("get balance", err)
	}

	return &balance, nil
}

// UpdateBalance replaces a user's balance and tier only if the stored balance
// still equals prevPoints. Zero rows affected means a concurrent writer won.
func (s *pgQueries) UpdateBalance(ctx context.Context, userID string, prevPoints, newPoints int64, tier string) error {
	query := `
		UPDATE user_loyalty
		SET loyalty_points = $3, loyalty_tier = $4, updated_at = NOW()
		WHERE user_id = $1 AND loyalty_points = $2
	`

	result, err := s.q.ExecContext(ctx, query, userID, prevPoints, newPoints, tier)
	if err != nil {
		return errors.ErrDatabaseError("update balance", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.ErrDatabaseError("update balance rows affected", err)
	}

	if affected == 0 {
		return errors.ErrConflict("update balance")
	}

	return nil
}

// CreateUser provisions the balance row for a new user with zero points.
func (s *pgQueries) CreateUser(ctx context.Context, userID, tier string) error {
	query := `
		INSERT INTO user_loyalty (user_id, loyalty_points, loyalty_tier, updated_at)
		VALUES ($1, 0, $2, NOW())
		ON CONFLICT (user_id) DO NOTHING
	`

	_, err := s.q.ExecContext(ctx, query, userID, tier)
	if err != nil {
		return errors.ErrDatabaseError("create user", err)
	}

	return nil
}

// AppendTransaction appends one immutable entry to the reward ledger.
// The BIGSERIAL id is assigned by the database and written back.
func (s *pgQueries) AppendTransaction(ctx context.Context, txn *domain.RewardTransaction) error {
	query := `
		INSERT INTO reward_transactions (
			user_id, kind, source, points, balance_after,
			occurred_at, description, metadata
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		RETURNING id
	`

	err := s.q.QueryRowContext(ctx, query,
		txn.UserID,
		txn.Kind,
		txn.Source,
		txn.Points,
		txn.BalanceAfter,
		txn.OccurredAt,
		txn.Description,
		txn.Metadata,
	).Scan(&txn.ID)

	if err != nil {
		return errors.ErrDatabaseError("append transaction", err)
	}

	return nil
}

// RecentTransactions retrieves a user's most recent ledger entries, newest first.
func (s *pgQueries) RecentTransactions(ctx context.Context, userID string, limit int) ([]*domain.RewardTransaction, error) {
	query := `
		SELECT id, user_id, kind, source, points, balance_after,
		       occurred_at, description, metadata
		FROM reward_transactions
		WHERE user_id = $1
		ORDER BY occurred_at DESC, id DESC
		LIMIT $2
	`

	rows, err := s.q.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, errors.ErrDatabaseError("recent transactions", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactionRows(rows)
}

// AllTransactions retrieves a user's full ledger in chain order.
func (s *pgQueries) AllTransactions(ctx context.Context, userID string) ([]*domain.RewardTransaction, error) {
	query := `
		SELECT id, user_id, kind, source, points, balance_after,
		       occurred_at, description, metadata
		FROM reward_transactions
		WHERE user_id = $1
		ORDER BY occurred_at ASC, id ASC
	`

	rows, err := s.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, errors.ErrDatabaseError("all transactions", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactionRows(rows)
}

// GrantBadge records a badge grant. Returns true if the badge was newly granted.
func (s *pgQueries) GrantBadge(ctx context.Context, badge *domain.UserBadge) (bool, error) {
	query := `
		INSERT INTO user_badges (user_id, badge_id, granted_at, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, badge_id) DO NOTHING
	`

	result, err := s.q.ExecContext(ctx, query,
		badge.UserID,
		badge.BadgeID,
		badge.GrantedAt,
		badge.Metadata,
	)
	if err != nil {
		return false, errors.ErrDatabaseError("grant badge", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.ErrDatabaseError("grant badge rows affected", err)
	}

	return affected > 0, nil
}

// GetUserBadges retrieves all badges held by a user, oldest first.
func (s *pgQueries) GetUserBadges(ctx context.Context, userID string) ([]*domain.UserBadge, error) {
	query := `
		SELECT user_id, badge_id, granted_at, metadata
		FROM user_badges
		WHERE user_id = $1
		ORDER BY granted_at ASC
	`

	rows, err := s.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, errors.ErrDatabaseError("get user badges", err)
	}
	defer func() { _ = rows.Close() }()

	var badges []*domain.UserBadge
	for rows.Next() {
		var badge domain.UserBadge
		err := rows.Scan(
			&badge.UserID,
			&badge.BadgeID,
			&badge.GrantedAt,
			&badge.Metadata,
		)
		if err != nil {
			return nil, errors.ErrDatabaseError("scan badge row", err)
		}
		badges = append(badges, &badge)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.ErrDatabaseError("iterate badge rows", err)
	}

	return badges, nil
}

// scanProgressRows is a helper to scan multiple progress rows.
func scanProgressRows(rows *sql.Rows) ([]*domain.QuestProgress, error) {
	var results []*domain.QuestProgress

	for rows.Next() {
		var progress domain.QuestProgress
		err := rows.Scan(
			&progress.UserID,
			&progress.QuestID,
			&progress.CurrentCount,
			&progress.IsCompleted,
			&progress.CompletedAt,
			&progress.LastResetAt,
			&progress.Metadata,
			&progress.CreatedAt,
			&progress.UpdatedAt,
		)
		if err != nil {
			return nil, errors.ErrDatabaseError("scan progress row", err)
		}
		results = append(results, &progress)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.ErrDatabaseError("iterate progress rows", err)
	}

	return results, nil
}

// scanTransactionRows is a helper to scan multiple ledger rows.
func scanTransactionRows(rows *sql.Rows) ([]*domain.RewardTransaction, error) {
	var results []*domain.RewardTransaction

	for rows.Next() {
		var txn domain.RewardTransaction
		err := rows.Scan(
			&txn.ID,
			&txn.UserID,
			&txn.Kind,
			&txn.Source,
			&txn.Points,
			&txn.BalanceAfter,
			&txn.OccurredAt,
			&txn.Description,
			&txn.Metadata,
		)
		if err != nil {
			return nil, errors.ErrDatabaseError("scan transaction row", err)
		}
		results = append(results, &txn)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.ErrDatabaseError("iterate transaction rows", err)
	}

	return results, nil
}

// ConfigureDB configures database connection pool settings.
func ConfigureDB(db *sql.DB) {
	// Maximum open connections (includes idle + in-use)
	db.SetMaxOpenConns(50)

	// Maximum idle connections in pool
	db.SetMaxIdleConns(10)

	// Maximum lifetime of connection
	db.SetConnMaxLifetime(30 * time.Minute)

	// Maximum idle time for connection
	db.SetConnMaxIdleTime(5 * time.Minute)
}
