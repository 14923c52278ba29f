package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/swipe4care/opportunity-feed/internal/db"
	apperr "github.com/swipe4care/opportunity-feed/internal/errors"
)

// SwipeRepository is the durable ledger of decisions: at most one row per
// (user, opportunity) pair, replaced in place on re-decide.
type SwipeRepository struct {
	db *gorm.DB
}

// NewSwipeRepository creates a new repository bound to the given DB connection.
func NewSwipeRepository(database *gorm.DB) *SwipeRepository {
	return &SwipeRepository{db: database}
}

// AcceptedOpportunity is an opportunity joined with the time it was accepted.
type AcceptedOpportunity struct {
	db.Opportunity `gorm:"embedded"`
	DecidedAt      time.Time `gorm:"column:decided_at" json:"decided_at"`
}

// RecordDecision upserts the decision for (user, opportunity).
//
// Behavior:
//   - If the pair exists → the row is updated with the new direction and
//     decision timestamp (last-write-wins).
//   - If it doesn't exist → a new row is inserted.
//   - The composite PK is the sole concurrency control: concurrent writers
//     race only on which value survives, never on row duplication.
//   - Fails not-found when the opportunity does not exist in the catalog.
//
// Example:
//
//	repo.RecordDecision(ctx, "alice", 7, db.DirectionAccept)
func (r *SwipeRepository) RecordDecision(
	ctx context.Context,
	userID string,
	opportunityID uint64,
	direction db.Direction,
) error {
	if strings.TrimSpace(userID) == "" {
		return apperr.Validation("user id is required")
	}
	if !direction.Valid() {
		return apperr.Validationf("direction must be %q or %q", db.DirectionAccept, db.DirectionReject)
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Opportunity{}).
		Where("id = ?", opportunityID).
		Count(&count).Error
	if err != nil {
		return apperr.Persistence("check opportunity", err)
	}
	if count == 0 {
		return apperr.NotFound("opportunity", opportunityID)
	}

	swipe := db.Swipe{
		UserID:        userID,
		OpportunityID: opportunityID,
		Direction:     direction,
	}
	err = r.db.WithContext(ctx).
		Omit("Opportunity").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "opportunity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"direction", "updated_at"}),
		}).
		Create(&swipe).Error
	if err != nil {
		return apperr.Persistence("record decision", err)
	}
	return nil
}

// RemoveDecision deletes the decision row if present.
//
// Behavior:
//   - Returns true when exactly one row was deleted.
//   - Returns false, not an error, when no row exists — safe to call
//     repeatedly.
func (r *SwipeRepository) RemoveDecision(ctx context.Context, userID string, opportunityID uint64) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, apperr.Validation("user id is required")
	}

	res := r.db.WithContext(ctx).
		Where("user_id = ? AND opportunity_id = ?", userID, opportunityID).
		Delete(&db.Swipe{})
	if res.Error != nil {
		return false, apperr.Persistence("remove decision", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListAccepted returns the opportunities whose latest decision for the user
// is accept, ordered by decision timestamp descending.
func (r *SwipeRepository) ListAccepted(ctx context.Context, userID string) ([]AcceptedOpportunity, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Validation("user id is required")
	}

	var accepted []AcceptedOpportunity
	err := r.db.WithContext(ctx).
		Table("opportunities o").
		Select("o.*, s.updated_at AS decided_at").
		Joins("JOIN swipes s ON s.opportunity_id = o.id").
		Where("s.user_id = ? AND s.direction = ?", userID, db.DirectionAccept).
		Order("s.updated_at DESC, s.opportunity_id DESC").
		Scan(&accepted).Error
	if err != nil {
		return nil, apperr.Persistence("list accepted", err)
	}
	return accepted, nil
}

// CountAccepted returns how many opportunities the user has accepted.
// Used with the Redis cache (DB is the fallback).
func (r *SwipeRepository) CountAccepted(ctx context.Context, userID string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, apperr.Validation("user id is required")
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("user_id = ? AND direction = ?", userID, db.DirectionAccept).
		Count(&count).Error
	if err != nil {
		return 0, apperr.Persistence("count accepted", err)
	}
	return count, nil
}

// IsDecided reports whether any decision row exists for the pair, in either
// direction.
func (r *SwipeRepository) IsDecided(ctx context.Context, userID string, opportunityID uint64) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, apperr.Validation("user id is required")
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("user_id = ? AND opportunity_id = ?", userID, opportunityID).
		Count(&count).Error
	if err != nil {
		return false, apperr.Persistence("check decision", err)
	}
	return count > 0, nil
}
