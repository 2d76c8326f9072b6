package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/stayloop/loyalty-ledger-common/pkg/domain"
	"github.com/stayloop/loyalty-ledger-common/pkg/errors"
	"github.com/stayloop/loyalty-ledger-common/pkg/repository"
)

// BadgeAwarder grants badges idempotently. Grants are keyed by
// (user_id, badge_id): repeat grants, including those caused by crediting
// retries, are no-ops rather than errors.
type BadgeAwarder struct {
	repo   repository.LedgerRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewBadgeAwarder creates a badge awarder over the given repository.
func NewBadgeAwarder(repo repository.LedgerRepository, logger *slog.Logger, now func() time.Time) *BadgeAwarder {
	if now == nil {
		now = time.Now
	}
	return &BadgeAwarder{
		repo:   repo,
		logger: logger,
		now:    now,
	}
}

// Grant records a badge for a user. Returns true if the badge was newly
// granted, false if the user already held it.
func (a *BadgeAwarder) Grant(ctx context.Context, userID, badgeID string, metadata domain.Metadata) (bool, error) {
	if badgeID == "" {
		return false, errors.ErrValidationFailed("badge_id", "cannot be empty")
	}

	granted, err := a.repo.GrantBadge(ctx, &domain.UserBadge{
		UserID:    userID,
		BadgeID:   badgeID,
		GrantedAt: a.now().UTC(),
		Metadata:  metadata,
	})
	if err != nil {
		return false, errors.ErrBadgeGrantFailed(badgeID, err)
	}

	if granted {
		a.logger.Info("Badge granted",
			"user_id", userID,
			"badge_id", badgeID,
		)
	}

	return granted, nil
}
