package engine

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/stayloop/loyalty-ledger-common/pkg/domain"
	"github.com/stayloop/loyalty-ledger-common/pkg/errors"
)

// GetUserRewardsSummary returns the user's cached balance, tier,
// progress-to-next-tier, and recent ledger history. Summaries are served
// from a bounded TTL cache that is invalidated on every ledger write for
// the user, so a reader never sees a balance staler than their own last
// credit.
//
// History is secondary data: if it cannot be read the summary degrades to
// an empty slice with a warning. Balance and tier errors fail the call.
func (e *Engine) GetUserRewardsSummary(ctx context.Context, userID string) (*domain.RewardsSummary, error) {
	if cached := e.summaries.Get(userID); cached != nil {
		return cached, nil
	}

	// Captured before the reads below: if a credit invalidates the user
	// while this summary is being built, the stale result is not cached
	gen := e.summaries.Generation(userID)

	var (
		balance *domain.UserLoyalty
		recent  []*domain.RewardTransaction
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		balance, err = e.repo.GetBalance(gctx, userID)
		return err
	})

	g.Go(func() error {
		entries, err := e.repo.RecentTransactions(gctx, userID, e.historyLimit)
		if err != nil {
			// History is display-only; the summary survives without it
			e.logger.Warn("Failed to load ledger history for summary",
				"user_id", userID,
				"error", err,
			)
			return nil
		}
		recent = entries
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	tiers := e.quests.Tiers()
	tier, err := domain.TierFor(balance.LoyaltyPoints, tiers)
	if err != nil {
		return nil, errors.ErrConfigInvalid(err.Error())
	}
	next, err := domain.ProgressToNext(balance.LoyaltyPoints, tiers)
	if err != nil {
		return nil, errors.ErrConfigInvalid(err.Error())
	}

	entries := make([]*domain.LedgerEntry, 0, len(recent))
	for _, txn := range recent {
		entries = append(entries, &domain.LedgerEntry{
			RewardTransaction: txn,
			SourceLabel:       txn.Source.Label(),
		})
	}

	summary := &domain.RewardsSummary{
		UserID:      userID,
		Points:      balance.LoyaltyPoints,
		Tier:        tier,
		NextTier:    next,
		Recent:      entries,
		RetrievedAt: e.now().UTC(),
	}

	e.summaries.Set(userID, summary, gen)

	return summary, nil
}

// GetQuestBoard lists all active quests with the user's current progress.
// Quests the user has not started yet are reported with a zero count.
// Viewing the board never creates rows, resets progress, or credits
// points; a resettable-but-not-yet-reset quest is reported as-is.
func (e *Engine) GetQuestBoard(ctx context.Context, userID string) ([]*domain.QuestBoardEntry, error) {
	active := e.quests.GetActiveQuests()

	progressByQuest := make(map[string]*domain.QuestProgress)
	rows, err := e.repo.GetUserProgress(ctx, userID)
	if err != nil {
		// Progress rows are secondary for display; the board degrades to
		// all-zero counts
		e.logger.Warn("Failed to load progress rows for quest board",
			"user_id", userID,
			"error", err,
		)
	} else {
		for _, row := range rows {
			progressByQuest[row.QuestID] = row
		}
	}

	board := make([]*domain.QuestBoardEntry, 0, len(active))
	for _, quest := range active {
		entry := &domain.QuestBoardEntry{
			Quest:       quest,
			TargetCount: quest.TargetCount,
		}
		if progress, ok := progressByQuest[quest.ID]; ok {
			entry.CurrentCount = progress.CurrentCount
			entry.IsCompleted = progress.IsCompleted
			entry.ProgressPercent = progress.ProgressPercent(quest.TargetCount)
		}
		board = append(board, entry)
	}

	// Deterministic display order
	sort.SliceStable(board, func(i, j int) bool {
		if board[i].Quest.TriggerCategory == board[j].Quest.TriggerCategory {
			return board[i].Quest.ID < board[j].Quest.ID
		}
		return board[i].Quest.TriggerCategory < board[j].Quest.TriggerCategory
	})

	return board, nil
}

// RecentTransactions returns a page of the user's ledger, newest first,
// joined with display labels. A non-positive limit falls back to the
// configured page size.
func (e *Engine) RecentTransactions(ctx context.Context, userID string, limit int) ([]*domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = e.historyLimit
	}

	recent, err := e.repo.RecentTransactions(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.LedgerEntry, 0, len(recent))
	for _, txn := range recent {
		entries = append(entries, &domain.LedgerEntry{
			RewardTransaction: txn,
			SourceLabel:       txn.Source.Label(),
		})
	}

	return entries, nil
}

// VerifyLedger audits a user's ledger: replaying every entry in
// (occurred_at, id) order must reproduce each entry's balanceAfter, and
// the final running balance must equal the cached loyalty points. Returns
// a ledger-corrupt error describing the first discrepancy.
func (e *Engine) VerifyLedger(ctx context.Context, userID string) error {
	entries, err := e.repo.AllTransactions(ctx, userID)
	if err != nil {
		return err
	}

	var running int64
	for i, txn := range entries {
		if txn.Points <= 0 {
			return errors.ErrLedgerCorrupt(userID,
				fmt.Sprintf("entry %d (id=%d) has non-positive points %d", i, txn.ID, txn.Points))
		}
		running += txn.SignedPoints()
		if txn.BalanceAfter != running {
			return errors.ErrLedgerCorrupt(userID,
				fmt.Sprintf("entry %d (id=%d) has balance_after %d, replay gives %d", i, txn.ID, txn.BalanceAfter, running))
		}
	}

	balance, err := e.repo.GetBalance(ctx, userID)
	if err != nil {
		return err
	}
	if balance.LoyaltyPoints != running {
		return errors.ErrLedgerCorrupt(userID,
			fmt.Sprintf("cached balance %d does not match ledger replay %d", balance.LoyaltyPoints, running))
	}

	return nil
}

// GetUserBadges lists the badges a user holds, oldest first.
func (e *Engine) GetUserBadges(ctx context.Context, userID string) ([]*domain.UserBadge, error) {
	return e.repo.GetUserBadges(ctx, userID)
}
