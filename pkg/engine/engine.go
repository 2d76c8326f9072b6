package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/stayloop/loyalty-ledger-common/pkg/cache"
	"github.com/stayloop/loyalty-ledger-common/pkg/client"
	"github.com/stayloop/loyalty-ledger-common/pkg/domain"
	"github.com/stayloop/loyalty-ledger-common/pkg/errors"
	"github.com/stayloop/loyalty-ledger-common/pkg/repository"
)

// Config bounds the engine's retry and read-view behavior.
// Zero values fall back to defaults.
type Config struct {
	// CreditRetries is how many times a crediting sequence is retried
	// after an optimistic-concurrency conflict before giving up.
	CreditRetries int

	// HistoryPageSize is the number of ledger entries returned in summaries.
	HistoryPageSize int

	// SummaryCacheSize bounds the rewards summary cache.
	SummaryCacheSize int

	// SummaryCacheTTL is how long a cached summary stays valid.
	SummaryCacheTTL time.Duration

	// Now overrides the engine clock. Used by tests to drive epoch resets.
	Now func() time.Time
}

// Engine coordinates quest progress tracking, reward crediting, badge
// grants, and the read views over the loyalty ledger. It is the only
// component permitted to append reward transactions or mutate balances.
//
// All methods are safe for concurrent use. Crediting for a given user is
// serialized twice over: an in-process per-user mutex keeps concurrent
// triggers in this process from burning database retries, and the
// repository's row locks plus the optimistic balance predicate protect
// against writers in other processes.
type Engine struct {
	repo      repository.LedgerRepository
	quests    cache.QuestCache
	notifier  client.Notifier
	badges    *BadgeAwarder
	summaries *cache.SummaryCache
	logger    *slog.Logger
	now       func() time.Time

	creditRetries int
	historyLimit  int

	userLocks sync.Map // userID -> *sync.Mutex
}

// New creates an Engine over the given repository, quest cache, and notifier.
func New(repo repository.LedgerRepository, quests cache.QuestCache, notifier client.Notifier, logger *slog.Logger, cfg Config) *Engine {
	if cfg.CreditRetries <= 0 {
		cfg.CreditRetries = 3
	}
	if cfg.HistoryPageSize <= 0 {
		cfg.HistoryPageSize = 20
	}
	if cfg.SummaryCacheSize <= 0 {
		cfg.SummaryCacheSize = 10000
	}
	if cfg.SummaryCacheTTL <= 0 {
		cfg.SummaryCacheTTL = 5 * time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		repo:          repo,
		quests:        quests,
		notifier:      notifier,
		badges:        NewBadgeAwarder(repo, logger, now),
		summaries:     cache.NewSummaryCache(cfg.SummaryCacheSize, cfg.SummaryCacheTTL),
		logger:        logger,
		now:           now,
		creditRetries: cfg.CreditRetries,
		historyLimit:  cfg.HistoryPageSize,
	}
}

// userLock returns the per-user mutex, creating it on first use.
func (e *Engine) userLock(userID string) *sync.Mutex {
	lock, _ := e.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// TrackProgress processes one qualifying domain event for a user. Every
// active quest whose trigger category matches is advanced by one unit;
// quests that just reached their target are credited atomically with the
// progress write. Returns a per-quest report.
//
// Triggers referencing unknown users are dropped with a warning and an
// empty result; the user will not reappear, so there is nothing to retry.
// Duplicate calls for the same logical event are double-counted:
// idempotency is the caller's responsibility.
func (e *Engine) TrackProgress(ctx context.Context, userID string, category domain.TriggerCategory, metadata domain.Metadata) ([]*domain.QuestProgressReport, error) {
	if userID == "" {
		return nil, errors.ErrValidationFailed("user_id", "cannot be empty")
	}
	if !category.IsValid() {
		return nil, errors.ErrValidationFailed("trigger_category", "unknown category '"+string(category)+"'")
	}

	// Unknown users are dropped, not retried
	if _, err := e.repo.GetBalance(ctx, userID); err != nil {
		if errors.IsNotFound(err) {
			e.logger.Warn("Dropping trigger for unknown user",
				"user_id", userID,
				"trigger_category", category,
			)
			return nil, nil
		}
		return nil, err
	}

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	matching := e.quests.GetActiveQuestsByCategory(category)

	reports := make([]*domain.QuestProgressReport, 0, len(matching))
	for _, quest := range matching {
		report, err := e.processQuest(ctx, userID, quest, metadata)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}

	return reports, nil
}

// processQuest advances one quest for one trigger, retrying the whole
// crediting sequence on optimistic-concurrency conflicts.
func (e *Engine) processQuest(ctx context.Context, userID string, quest *domain.Quest, metadata domain.Metadata) (*domain.QuestProgressReport, error) {
	var lastErr error

	for attempt := 0; attempt <= e.creditRetries; attempt++ {
		report, outcome, err := e.processQuestAttempt(ctx, userID, quest, metadata)
		if err != nil {
			if errors.IsConflict(err) {
				lastErr = err
				e.logger.Debug("Crediting conflict, retrying",
					"user_id", userID,
					"quest_id", quest.ID,
					"attempt", attempt+1,
				)
				continue
			}
			return nil, err
		}

		e.afterCredit(ctx, userID, quest, outcome)
		return report, nil
	}

	return nil, errors.ErrTransactionFailed("credit quest reward", lastErr)
}

// creditOutcome carries post-commit work out of a successful attempt.
type creditOutcome struct {
	justCompleted bool
	pointsEarned  int64
	newTier       string
	tierChanged   bool
}

// processQuestAttempt runs one progress-plus-crediting transaction.
// The progress row lock serializes concurrent triggers for the same
// (user, quest) pair; the balance update's optimistic predicate catches
// writers the row lock cannot see.
func (e *Engine) processQuestAttempt(ctx context.Context, userID string, quest *domain.Quest, metadata domain.Metadata) (*domain.QuestProgressReport, *creditOutcome, error) {
	now := e.now().UTC()

	tx, err := e.repo.BeginTx(ctx)
	if err != nil {
		return nil, nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	progress, err := tx.GetProgressForUpdate(ctx, userID, quest.ID)
	if err != nil {
		return nil, nil, err
	}

	// Lazy initialization on first matching trigger
	if progress == nil {
		progress = &domain.QuestProgress{
			UserID:      userID,
			QuestID:     quest.ID,
			LastResetAt: now,
		}
	}

	// Lazy epoch reset: applied when a trigger arrives, never by a
	// background job
	if domain.ShouldReset(quest, progress, now) {
		progress.CurrentCount = 0
		progress.IsCompleted = false
		progress.CompletedAt = nil
		progress.LastResetAt = now
	}

	// A finished one-shot quest never re-enters the crediting path
	if progress.IsCompleted && quest.Recurrence == domain.RecurrenceNone {
		return e.buildReport(progress, quest, 0), &creditOutcome{}, nil
	}

	progress.CurrentCount++
	wasCompleted := progress.IsCompleted
	justCompleted := progress.MeetsTarget(quest.TargetCount) && !wasCompleted
	if justCompleted {
		progress.IsCompleted = true
		progress.CompletedAt = &now
	}
	if metadata != nil {
		progress.Metadata = metadata
	}

	if err := tx.UpsertProgress(ctx, progress); err != nil {
		return nil, nil, err
	}

	outcome := &creditOutcome{justCompleted: justCompleted}

	// Quests with a zero reward complete without a ledger row: the ledger
	// only ever holds positive-magnitude entries.
	if justCompleted && quest.RewardPoints > 0 {
		balance, err := tx.GetBalanceForUpdate(ctx, userID)
		if err != nil {
			return nil, nil, err
		}

		previousBalance := balance.LoyaltyPoints
		newBalance := previousBalance + quest.RewardPoints

		newTier, err := domain.TierFor(newBalance, e.quests.Tiers())
		if err != nil {
			return nil, nil, errors.ErrConfigInvalid(err.Error())
		}

		txn := &domain.RewardTransaction{
			UserID:       userID,
			Kind:         domain.TransactionCredit,
			Source:       domain.SourceQuest,
			Points:       quest.RewardPoints,
			BalanceAfter: newBalance,
			OccurredAt:   now,
			Description:  quest.Name,
			Metadata: domain.Metadata{
				"quest_id": quest.ID,
				"trigger":  string(quest.TriggerCategory),
			},
		}
		if err := tx.AppendTransaction(ctx, txn); err != nil {
			return nil, nil, err
		}

		if err := tx.UpdateBalance(ctx, userID, previousBalance, newBalance, newTier.Name); err != nil {
			return nil, nil, err
		}

		outcome.pointsEarned = quest.RewardPoints
		outcome.newTier = newTier.Name
		outcome.tierChanged = newTier.Name != balance.LoyaltyTier
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	committed = true

	return e.buildReport(progress, quest, outcome.pointsEarned), outcome, nil
}

// afterCredit runs the best-effort post-commit effects: summary cache
// invalidation, badge grant, and notifications. None of these can fail
// the crediting that already committed.
func (e *Engine) afterCredit(ctx context.Context, userID string, quest *domain.Quest, outcome *creditOutcome) {
	if outcome.pointsEarned > 0 {
		e.summaries.Invalidate(userID)
	}

	if !outcome.justCompleted {
		return
	}

	e.logger.Info("Quest completed",
		"user_id", userID,
		"quest_id", quest.ID,
		"points_earned", outcome.pointsEarned,
	)

	if quest.RewardBadgeID != "" {
		granted, err := e.badges.Grant(ctx, userID, quest.RewardBadgeID, domain.Metadata{"quest_id": quest.ID})
		if err != nil {
			e.logger.Warn("Badge grant failed",
				"user_id", userID,
				"badge_id", quest.RewardBadgeID,
				"error", err,
			)
		} else if granted {
			e.publish(ctx, userID, func(event *client.Event) {
				event.Type = client.EventBadgeGranted
				event.BadgeID = quest.RewardBadgeID
				event.QuestID = quest.ID
			})
		}
	}

	e.publish(ctx, userID, func(event *client.Event) {
		event.QuestID = quest.ID
		event.Points = outcome.pointsEarned
	})

	if outcome.tierChanged {
		e.publish(ctx, userID, func(event *client.Event) {
			event.Type = client.EventTierChanged
			event.Tier = outcome.newTier
		})
	}
}

// publish delivers one event best-effort. Failures are logged, never propagated.
func (e *Engine) publish(ctx context.Context, userID string, fill func(*client.Event)) {
	event := client.NewEvent(client.EventQuestCompleted, userID)
	fill(event)

	if err := e.notifier.Publish(ctx, event); err != nil {
		e.logger.Warn("Notification dispatch failed",
			"event_id", event.ID,
			"event_type", event.Type,
			"user_id", userID,
			"error", err,
		)
	}
}

func (e *Engine) buildReport(progress *domain.QuestProgress, quest *domain.Quest, pointsEarned int64) *domain.QuestProgressReport {
	return &domain.QuestProgressReport{
		QuestID:         quest.ID,
		CurrentCount:    progress.CurrentCount,
		TargetCount:     quest.TargetCount,
		IsCompleted:     progress.IsCompleted,
		ProgressPercent: progress.ProgressPercent(quest.TargetCount),
		PointsEarned:    pointsEarned,
	}
}

// ActivateMembershipBonus appends a non-quest ledger entry (membership
// bonus, booking reward, redemption debit, manual adjustment) under the
// same atomic read-balance/append/update protocol as quest crediting.
//
// Points is a positive magnitude; the kind determines the sign. Debits
// may drive the balance negative only for ADJUSTMENT entries, otherwise
// the call fails with an insufficient-balance error and writes nothing.
func (e *Engine) ActivateMembershipBonus(ctx context.Context, userID string, kind domain.TransactionKind, source domain.TransactionSource, points int64, metadata domain.Metadata) (*domain.RewardTransaction, error) {
	if userID == "" {
		return nil, errors.ErrValidationFailed("user_id", "cannot be empty")
	}
	if points <= 0 {
		return nil, errors.ErrValidationFailed("points", "must be positive")
	}
	if !kind.IsValid() {
		return nil, errors.ErrValidationFailed("kind", "unknown kind '"+string(kind)+"'")
	}
	if !source.IsValid() || source == domain.SourceQuest {
		return nil, errors.ErrValidationFailed("source", "invalid source '"+string(source)+"'")
	}

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	var lastErr error
	for attempt := 0; attempt <= e.creditRetries; attempt++ {
		txn, tierChanged, newTier, err := e.applyBonusAttempt(ctx, userID, kind, source, points, metadata)
		if err != nil {
			if errors.IsConflict(err) {
				lastErr = err
				continue
			}
			return nil, err
		}

		e.summaries.Invalidate(userID)
		if tierChanged {
			e.publish(ctx, userID, func(event *client.Event) {
				event.Type = client.EventTierChanged
				event.Tier = newTier
			})
		}
		return txn, nil
	}

	return nil, errors.ErrTransactionFailed("apply bonus", lastErr)
}

func (e *Engine) applyBonusAttempt(ctx context.Context, userID string, kind domain.TransactionKind, source domain.TransactionSource, points int64, metadata domain.Metadata) (*domain.RewardTransaction, bool, string, error) {
	now := e.now().UTC()

	tx, err := e.repo.BeginTx(ctx)
	if err != nil {
		return nil, false, "", err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	balance, err := tx.GetBalanceForUpdate(ctx, userID)
	if err != nil {
		return nil, false, "", err
	}

	previousBalance := balance.LoyaltyPoints
	delta := points
	if kind == domain.TransactionDebit {
		delta = -points
	}
	newBalance := previousBalance + delta

	// Only manual adjustments may overdraw
	if newBalance < 0 && source != domain.SourceAdjustment {
		return nil, false, "", errors.ErrInsufficientBalance(userID, previousBalance, points)
	}

	newTier, err := domain.TierFor(newBalance, e.quests.Tiers())
	if err != nil {
		return nil, false, "", errors.ErrConfigInvalid(err.Error())
	}

	txn := &domain.RewardTransaction{
		UserID:       userID,
		Kind:         kind,
		Source:       source,
		Points:       points,
		BalanceAfter: newBalance,
		OccurredAt:   now,
		Description:  source.Label(),
		Metadata:     metadata,
	}
	if err := tx.AppendTransaction(ctx, txn); err != nil {
		return nil, false, "", err
	}

	if err := tx.UpdateBalance(ctx, userID, previousBalance, newBalance, newTier.Name); err != nil {
		return nil, false, "", err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, "", err
	}
	committed = true

	return txn, newTier.Name != balance.LoyaltyTier, newTier.Name, nil
}
