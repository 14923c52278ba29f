package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/swipe4care/opportunity-feed/internal/db"
	apperr "github.com/swipe4care/opportunity-feed/internal/errors"
)

// FeedRepository computes the undecided subset of the catalog for a user.
// It is a pure read: calling it twice without intervening writes yields the
// same result.
type FeedRepository struct {
	db *gorm.DB
}

// NewFeedRepository creates a new repository bound to the given DB connection.
func NewFeedRepository(database *gorm.DB) *FeedRepository {
	return &FeedRepository{db: database}
}

// SelectUndecided returns opportunities with no decision row for the user,
// in either direction, ordered by creation time descending (ties broken by
// id descending) and truncated to limit.
//
// Behavior:
//   - The anti-join keys on the ledger's primary key, so a row written in
//     the same transaction context is already excluded (read-your-writes).
//   - Never returns duplicate ids within one call.
//
// Example:
//
//	repo.SelectUndecided(ctx, "alice", 10)
func (r *FeedRepository) SelectUndecided(ctx context.Context, userID string, limit int) ([]db.Opportunity, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Validation("user id is required")
	}
	if limit <= 0 {
		return nil, apperr.Validation("limit must be a positive integer")
	}

	var opportunities []db.Opportunity
	err := r.db.WithContext(ctx).
		Table("opportunities o").
		Select("o.*").
		Joins("LEFT JOIN swipes s ON s.opportunity_id = o.id AND s.user_id = ?", userID).
		Where("s.user_id IS NULL").
		Order("o.created_at DESC, o.id DESC").
		Limit(limit).
		Scan(&opportunities).Error
	if err != nil {
		return nil, apperr.Persistence("select undecided", err)
	}
	return opportunities, nil
}
