package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stayloop/loyalty-ledger-common/pkg/domain"
	"github.com/stayloop/loyalty-ledger-common/pkg/errors"
)

// MemoryLedgerRepository is an in-memory implementation of LedgerRepository
// for local development and testing. A single mutex guards all state;
// BeginTx holds it for the whole transaction, so transactions serialize.
type MemoryLedgerRepository struct {
	mu       sync.Mutex
	progress map[string]*domain.QuestProgress          // "userID|questID" -> progress
	balances map[string]*domain.UserLoyalty            // userID -> balance
	ledger   map[string][]*domain.RewardTransaction    // userID -> entries (append order)
	badges   map[string]map[string]*domain.UserBadge   // userID -> badgeID -> badge
	nextID   int64
}

// NewMemoryLedgerRepository creates an empty in-memory repository.
func NewMemoryLedgerRepository() *MemoryLedgerRepository {
	return &MemoryLedgerRepository{
		progress: make(map[string]*domain.QuestProgress),
		balances: make(map[string]*domain.UserLoyalty),
		ledger:   make(map[string][]*domain.RewardTransaction),
		badges:   make(map[string]map[string]*domain.UserBadge),
	}
}

func progressKey(userID, questID string) string {
	return userID + "|" + questID
}

// GetProgress retrieves a single user's progress for a specific quest.
func (r *MemoryLedgerRepository) GetProgress(ctx context.Context, userID, questID string) (*domain.QuestProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getProgressLocked(userID, questID), nil
}

func (r *MemoryLedgerRepository) getProgressLocked(userID, questID string) *domain.QuestProgress {
	p, ok := r.progress[progressKey(userID, questID)]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// GetUserProgress retrieves all quest progress records for a specific user.
func (r *MemoryLedgerRepository) GetUserProgress(ctx context.Context, userID string) ([]*domain.QuestProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getUserProgressLocked(userID), nil
}

func (r *MemoryLedgerRepository) getUserProgressLocked(userID string) []*domain.QuestProgress {
	var results []*domain.QuestProgress
	for _, p := range r.progress {
		if p.UserID == userID {
			cp := *p
			results = append(results, &cp)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.Before(results[j].CreatedAt)
	})
	return results
}

// UpsertProgress creates or updates a single quest progress record.
func (r *MemoryLedgerRepository) UpsertProgress(ctx context.Context, progress *domain.QuestProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertProgressLocked(progress)
	return nil
}

func (r *MemoryLedgerRepository) upsertProgressLocked(progress *domain.QuestProgress) {
	key := progressKey(progress.UserID, progress.QuestID)
	now := time.Now().UTC()

	cp := *progress
	if existing, ok := r.progress[key]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now

	r.progress[key] = &cp
}

// GetBalance retrieves a user's loyalty balance row.
func (r *MemoryLedgerRepository) GetBalance(ctx context.Context, userID string) (*domain.UserLoyalty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getBalanceLocked(userID)
}

func (r *MemoryLedgerRepository) getBalanceLocked(userID string) (*domain.UserLoyalty, error) {
	b, ok := r.balances[userID]
	if !ok {
		return nil, errors.ErrUserNotFound(userID)
	}
	cp := *b
	return &cp, nil
}

// UpdateBalance replaces a user's balance and tier only if the stored balance
// still equals prevPoints.
func (r *MemoryLedgerRepository) UpdateBalance(ctx context.Context, userID string, prevPoints, newPoints int64, tier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateBalanceLocked(userID, prevPoints, newPoints, tier)
}

func (r *MemoryLedgerRepository) updateBalanceLocked(userID string, prevPoints, newPoints int64, tier string) error {
	b, ok := r.balances[userID]
	if !ok || b.LoyaltyPoints != prevPoints {
		return errors.ErrConflict("update balance")
	}

	b.LoyaltyPoints = newPoints
	b.LoyaltyTier = tier
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// CreateUser provisions the balance row for a new user with zero points.
func (r *MemoryLedgerRepository) CreateUser(ctx context.Context, userID, tier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createUserLocked(userID, tier)
	return nil
}

func (r *MemoryLedgerRepository) createUserLocked(userID, tier string) {
	if _, ok := r.balances[userID]; ok {
		return
	}
	r.balances[userID] = &domain.UserLoyalty{
		UserID:        userID,
		LoyaltyPoints: 0,
		LoyaltyTier:   tier,
		UpdatedAt:     time.Now().UTC(),
	}
}

// AppendTransaction appends one immutable entry to the reward ledger.
func (r *MemoryLedgerRepository) AppendTransaction(ctx context.Context, txn *domain.RewardTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendTransactionLocked(txn)
	return nil
}

func (r *MemoryLedgerRepository) appendTransactionLocked(txn *domain.RewardTransaction) {
	r.nextID++
	txn.ID = r.nextID

	cp := *txn
	r.ledger[txn.UserID] = append(r.ledger[txn.UserID], &cp)
}

// RecentTransactions retrieves a user's most recent ledger entries, newest first.
func (r *MemoryLedgerRepository) RecentTransactions(ctx context.Context, userID string, limit int) ([]*domain.RewardTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recentTransactionsLocked(userID, limit), nil
}

func (r *MemoryLedgerRepository) recentTransactionsLocked(userID string, limit int) []*domain.RewardTransaction {
	entries := r.sortedLedgerLocked(userID)

	// Reverse to newest-first
	var results []*domain.RewardTransaction
	for i := len(entries) - 1; i >= 0 && len(results) < limit; i-- {
		cp := *entries[i]
		results = append(results, &cp)
	}
	return results
}

// AllTransactions retrieves a user's full ledger in chain order.
func (r *MemoryLedgerRepository) AllTransactions(ctx context.Context, userID string) ([]*domain.RewardTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allTransactionsLocked(userID), nil
}

func (r *MemoryLedgerRepository) allTransactionsLocked(userID string) []*domain.RewardTransaction {
	entries := r.sortedLedgerLocked(userID)
	results := make([]*domain.RewardTransaction, 0, len(entries))
	for _, e := range entries {
		cp := *e
		results = append(results, &cp)
	}
	return results
}

// sortedLedgerLocked returns the user's entries ordered by (occurred_at, id) ascending.
func (r *MemoryLedgerRepository) sortedLedgerLocked(userID string) []*domain.RewardTransaction {
	entries := make([]*domain.RewardTransaction, len(r.ledger[userID]))
	copy(entries, r.ledger[userID])
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].OccurredAt.Equal(entries[j].OccurredAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].OccurredAt.Before(entries[j].OccurredAt)
	})
	return entries
}

// GrantBadge records a badge grant. Returns true if the badge was newly granted.
func (r *MemoryLedgerRepository) GrantBadge(ctx context.Context, badge *domain.UserBadge) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.grantBadgeLocked(badge), nil
}

func (r *MemoryLedgerRepository) grantBadgeLocked(badge *domain.UserBadge) bool {
	userBadges, ok := r.badges[badge.UserID]
	if !ok {
		userBadges = make(map[string]*domain.UserBadge)
		r.badges[badge.UserID] = userBadges
	}

	if _, exists := userBadges[badge.BadgeID]; exists {
		return false
	}

	cp := *badge
	userBadges[badge.BadgeID] = &cp
	return true
}

// GetUserBadges retrieves all badges held by a user, oldest first.
func (r *MemoryLedgerRepository) GetUserBadges(ctx context.Context, userID string) ([]*domain.UserBadge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getUserBadgesLocked(userID), nil
}

func (r *MemoryLedgerRepository) getUserBadgesLocked(userID string) []*domain.UserBadge {
	var results []*domain.UserBadge
	for _, b := range r.badges[userID] {
		cp := *b
		results = append(results, &cp)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].GrantedAt.Before(results[j].GrantedAt)
	})
	return results
}

// BeginTx starts a transaction. The repository mutex is held until Commit
// or Rollback, so concurrent transactions serialize.
func (r *MemoryLedgerRepository) BeginTx(ctx context.Context) (TxRepository, error) {
	r.mu.Lock()

	return &MemoryTxRepository{
		repo:     r,
		snapshot: r.snapshotLocked(),
	}, nil
}

// memSnapshot captures repository state for rollback.
type memSnapshot struct {
	progress map[string]*domain.QuestProgress
	balances map[string]*domain.UserLoyalty
	ledger   map[string][]*domain.RewardTransaction
	badges   map[string]map[string]*domain.UserBadge
	nextID   int64
}

func (r *MemoryLedgerRepository) snapshotLocked() *memSnapshot {
	snap := &memSnapshot{
		progress: make(map[string]*domain.QuestProgress, len(r.progress)),
		balances: make(map[string]*domain.UserLoyalty, len(r.balances)),
		ledger:   make(map[string][]*domain.RewardTransaction, len(r.ledger)),
		badges:   make(map[string]map[string]*domain.UserBadge, len(r.badges)),
		nextID:   r.nextID,
	}
	for k, v := range r.progress {
		cp := *v
		snap.progress[k] = &cp
	}
	for k, v := range r.balances {
		cp := *v
		snap.balances[k] = &cp
	}
	for k, v := range r.ledger {
		entries := make([]*domain.RewardTransaction, len(v))
		copy(entries, v)
		snap.ledger[k] = entries
	}
	for k, v := range r.badges {
		userBadges := make(map[string]*domain.UserBadge, len(v))
		for bk, bv := range v {
			cp := *bv
			userBadges[bk] = &cp
		}
		snap.badges[k] = userBadges
	}
	return snap
}

func (r *MemoryLedgerRepository) restoreLocked(snap *memSnapshot) {
	r.progress = snap.progress
	r.balances = snap.balances
	r.ledger = snap.ledger
	r.badges = snap.badges
	r.nextID = snap.nextID
}

// MemoryTxRepository implements TxRepository over MemoryLedgerRepository.
// The parent mutex is already held; methods call unlocked internals.
type MemoryTxRepository struct {
	repo     *MemoryLedgerRepository
	snapshot *memSnapshot
	done     bool
}

// GetProgress retrieves progress within the transaction.
func (t *MemoryTxRepository) GetProgress(ctx context.Context, userID, questID string) (*domain.QuestProgress, error) {
	return t.repo.getProgressLocked(userID, questID), nil
}

// GetProgressForUpdate retrieves progress with the row conceptually locked.
// The whole store is already locked, so this is the same as GetProgress.
func (t *MemoryTxRepository) GetProgressForUpdate(ctx context.Context, userID, questID string) (*domain.QuestProgress, error) {
	return t.repo.getProgressLocked(userID, questID), nil
}

// GetUserProgress retrieves all progress rows within the transaction.
func (t *MemoryTxRepository) GetUserProgress(ctx context.Context, userID string) ([]*domain.QuestProgress, error) {
	return t.repo.getUserProgressLocked(userID), nil
}

// UpsertProgress writes a progress row within the transaction.
func (t *MemoryTxRepository) UpsertProgress(ctx context.Context, progress *domain.QuestProgress) error {
	t.repo.upsertProgressLocked(progress)
	return nil
}

// GetBalance retrieves the balance row within the transaction.
func (t *MemoryTxRepository) GetBalance(ctx context.Context, userID string) (*domain.UserLoyalty, error) {
	return t.repo.getBalanceLocked(userID)
}

// GetBalanceForUpdate retrieves the balance row within the transaction.
func (t *MemoryTxRepository) GetBalanceForUpdate(ctx context.Context, userID string) (*domain.UserLoyalty, error) {
	return t.repo.getBalanceLocked(userID)
}

// UpdateBalance conditionally updates the balance within the transaction.
func (t *MemoryTxRepository) UpdateBalance(ctx context.Context, userID string, prevPoints, newPoints int64, tier string) error {
	return t.repo.updateBalanceLocked(userID, prevPoints, newPoints, tier)
}

// CreateUser provisions a balance row within the transaction.
func (t *MemoryTxRepository) CreateUser(ctx context.Context, userID, tier string) error {
	t.repo.createUserLocked(userID, tier)
	return nil
}

// AppendTransaction appends a ledger entry within the transaction.
func (t *MemoryTxRepository) AppendTransaction(ctx context.Context, txn *domain.RewardTransaction) error {
	t.repo.appendTransactionLocked(txn)
	return nil
}

// RecentTransactions reads recent ledger entries within the transaction.
func (t *MemoryTxRepository) RecentTransactions(ctx context.Context, userID string, limit int) ([]*domain.RewardTransaction, error) {
	return t.repo.recentTransactionsLocked(userID, limit), nil
}

// AllTransactions reads the full ledger within the transaction.
func (t *MemoryTxRepository) AllTransactions(ctx context.Context, userID string) ([]*domain.RewardTransaction, error) {
	return t.repo.allTransactionsLocked(userID), nil
}

// GrantBadge records a badge grant within the transaction.
func (t *MemoryTxRepository) GrantBadge(ctx context.Context, badge *domain.UserBadge) (bool, error) {
	return t.repo.grantBadgeLocked(badge), nil
}

// GetUserBadges reads badges within the transaction.
func (t *MemoryTxRepository) GetUserBadges(ctx context.Context, userID string) ([]*domain.UserBadge, error) {
	return t.repo.getUserBadgesLocked(userID), nil
}

// BeginTx is not supported within a transaction.
func (t *MemoryTxRepository) BeginTx(ctx context.Context) (TxRepository, error) {
	return nil, fmt.Errorf("cannot begin nested transaction")
}

// Commit keeps all writes and releases the store.
func (t *MemoryTxRepository) Commit() error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true
	t.snapshot = nil
	t.repo.mu.Unlock()
	return nil
}

// Rollback restores the pre-transaction snapshot and releases the store.
func (t *MemoryTxRepository) Rollback() error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true
	t.repo.restoreLocked(t.snapshot)
	t.snapshot = nil
	t.repo.mu.Unlock()
	return nil
}
