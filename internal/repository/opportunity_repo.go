package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/swipe4care/opportunity-feed/internal/db"
	apperr "github.com/swipe4care/opportunity-feed/internal/errors"
	"github.com/swipe4care/opportunity-feed/internal/utils/pagination"
)

// OpportunityRepository is the append-only catalog of opportunities.
// There is deliberately no update or delete: what a user saw and decided on
// must stay exactly as it was.
type OpportunityRepository struct {
	db *gorm.DB
}

// NewOpportunityRepository creates a new repository bound to the given DB connection.
func NewOpportunityRepository(database *gorm.DB) *OpportunityRepository {
	return &OpportunityRepository{db: database}
}

// Insert validates and persists a new opportunity, returning its assigned id.
//
// Behavior:
//   - Title, description, organization, URL must be non-empty; category must
//     be one of the enumerated values. Violations fail validation before any
//     storage access.
//   - The id is assigned by the store; the creation timestamp is set to now
//     unless the caller staged one (seeding).
//
// Example:
//
//	id, err := repo.Insert(ctx, &db.Opportunity{Title: "...", ...})
func (r *OpportunityRepository) Insert(ctx context.Context, o *db.Opportunity) (uint64, error) {
	if err := validateOpportunity(o); err != nil {
		return 0, err
	}

	o.ID = 0
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		return 0, apperr.Persistence("insert opportunity", err)
	}
	return o.ID, nil
}

// ListCreatedDescending returns opportunities ordered by creation time, most
// recent first, ties broken by id descending. Offset may be zero.
func (r *OpportunityRepository) ListCreatedDescending(ctx context.Context, offset, limit int) ([]db.Opportunity, error) {
	if limit <= 0 {
		return nil, apperr.Validation("limit must be a positive integer")
	}
	if offset < 0 {
		return nil, apperr.Validation("offset must not be negative")
	}

	var opportunities []db.Opportunity
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&opportunities).Error
	if err != nil {
		return nil, apperr.Persistence("list opportunities", err)
	}
	return opportunities, nil
}

// ListCreatedPage is the cursor-paginated variant of ListCreatedDescending,
// keyed on (created_at, id) so concurrent inserts cannot shift rows between
// pages.
//
// Behavior:
//   - Empty token → first page.
//   - Returns a next-page token when more rows exist.
func (r *OpportunityRepository) ListCreatedPage(
	ctx context.Context,
	paginationToken *string,
	limit int,
) ([]db.Opportunity, *string, error) {
	if limit <= 0 {
		return nil, nil, apperr.Validation("limit must be a positive integer")
	}

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, apperr.Validation("invalid pagination token")
	}

	query := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	if cursor.OpportunityID > 0 && cursor.CreatedUnix > 0 {
		ts := time.UnixMilli(cursor.CreatedUnix)
		query = query.Where(
			"(created_at < ? OR (created_at = ? AND id < ?))",
			ts, ts, cursor.OpportunityID,
		)
	}

	var opportunities []db.Opportunity
	if err := query.Find(&opportunities).Error; err != nil {
		return nil, nil, apperr.Persistence("list opportunities", err)
	}

	var nextToken *string
	if len(opportunities) > limit {
		last := opportunities[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			OpportunityID: last.ID,
			CreatedUnix:   last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		opportunities = opportunities[:limit]
	}

	return opportunities, nextToken, nil
}

// Exists reports whether an opportunity with the given id is in the catalog.
func (r *OpportunityRepository) Exists(ctx context.Context, id uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Opportunity{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, apperr.Persistence("check opportunity", err)
	}
	return count > 0, nil
}

func validateOpportunity(o *db.Opportunity) error {
	switch {
	case o == nil:
		return apperr.Validation("opportunity is required")
	case strings.TrimSpace(o.Title) == "":
		return apperr.Validation("title is required")
	case strings.TrimSpace(o.Description) == "":
		return apperr.Validation("description is required")
	case strings.TrimSpace(o.Organization) == "":
		return apperr.Validation("organization is required")
	case strings.TrimSpace(o.URL) == "":
		return apperr.Validation("url is required")
	case !db.ValidCategory(o.Category):
		return apperr.Validationf("category must be one of %s, %s, %s",
			db.CategoryClinicalTrial, db.CategoryVolunteer, db.CategoryResearch)
	}
	return nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
