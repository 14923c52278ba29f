package feed

import (
	"context"
	"errors"

	"github.com/swipe4care/opportunity-feed/internal/app"
	"github.com/swipe4care/opportunity-feed/internal/db"
	apperr "github.com/swipe4care/opportunity-feed/internal/errors"
	"github.com/swipe4care/opportunity-feed/internal/ingest"
	"github.com/swipe4care/opportunity-feed/internal/repository"
)

// DefaultFeedLimit is used when a caller does not say how many items it wants.
const DefaultFeedLimit = 10

// Service contains the business logic on top of the repositories, cache and
// ingestion producer. Each method backs one REST endpoint.
type Service struct {
	appCtx          *app.AppContext
	opportunityRepo *repository.OpportunityRepository
	swipeRepo       *repository.SwipeRepository
	feedRepo        *repository.FeedRepository
	producer        ingest.Producer
}

// NewService creates the feed service with dependencies from AppContext.
func NewService(appCtx *app.AppContext, producer ingest.Producer) *Service {
	return &Service{
		appCtx:          appCtx,
		opportunityRepo: repository.NewOpportunityRepository(appCtx.DB),
		swipeRepo:       repository.NewSwipeRepository(appCtx.DB),
		feedRepo:        repository.NewFeedRepository(appCtx.DB),
		producer:        producer,
	}
}

// GetFeed returns the user's undecided opportunities, newest first.
// A zero limit means DefaultFeedLimit; an explicit non-positive limit is a
// validation error (handled by the selector).
func (s *Service) GetFeed(ctx context.Context, userID string, limit int) ([]db.Opportunity, error) {
	if limit == 0 {
		limit = DefaultFeedLimit
	}

	s.appCtx.Logger.Debug("GetFeed called", "user", userID, "limit", limit)
	return s.feedRepo.SelectUndecided(ctx, userID, limit)
}

// PutSwipe records (or replaces) the decision for (user, opportunity) and
// invalidates the cached accepted count.
//
// Example:
//
//	svc.PutSwipe(ctx, "alice", 7, db.DirectionAccept)
func (s *Service) PutSwipe(ctx context.Context, userID string, opportunityID uint64, direction db.Direction) error {
	s.appCtx.Logger.Debug("PutSwipe called", "user", userID, "opportunity", opportunityID, "direction", direction)

	if opportunityID == 0 {
		return apperr.Validation("opportunityId is required")
	}

	if err := s.swipeRepo.RecordDecision(ctx, userID, opportunityID, direction); err != nil {
		return err
	}

	// the count can only be recomputed from the ledger after a LWW replace
	if err := s.appCtx.RedisCache.InvalidateAcceptedCount(ctx, userID); err != nil {
		s.appCtx.Logger.Warn("failed to invalidate accepted count", "user", userID, "err", err)
	}
	return nil
}

// ListLiked returns the user's accepted opportunities with decision times,
// most recent decision first.
func (s *Service) ListLiked(ctx context.Context, userID string) ([]repository.AcceptedOpportunity, error) {
	return s.swipeRepo.ListAccepted(ctx, userID)
}

// CountLiked returns how many opportunities the user has accepted.
// Cache-first strategy:
//  1. Attempts to read from Redis (accepted:count:userID).
//  2. On cache miss, falls back to the ledger.
//  3. On DB fetch, updates Redis with the standard TTL.
func (s *Service) CountLiked(ctx context.Context, userID string) (int64, error) {
	if cached, ok, err := s.appCtx.RedisCache.GetAcceptedCount(ctx, userID); err == nil && ok {
		return cached, nil
	}

	count, err := s.swipeRepo.CountAccepted(ctx, userID)
	if err != nil {
		return 0, err
	}

	if err := s.appCtx.RedisCache.SetAcceptedCount(ctx, userID, count); err != nil {
		s.appCtx.Logger.Warn("failed to cache accepted count", "user", userID, "err", err)
	}
	return count, nil
}

// RemoveLiked deletes the decision row, returning whether one existed.
// Removing a decision puts the opportunity back into the undecided feed.
func (s *Service) RemoveLiked(ctx context.Context, userID string, opportunityID uint64) (bool, error) {
	removed, err := s.swipeRepo.RemoveDecision(ctx, userID, opportunityID)
	if err != nil {
		return false, err
	}
	if removed {
		if err := s.appCtx.RedisCache.InvalidateAcceptedCount(ctx, userID); err != nil {
			s.appCtx.Logger.Warn("failed to invalidate accepted count", "user", userID, "err", err)
		}
	}
	return removed, nil
}

// Ingest asks the producer for new records and inserts them into the store.
//
// Behavior:
//   - A producer failure is logged and replaced with the fixed fallback set,
//     so ingestion never hard-fails on collaborator trouble.
//   - Records failing store validation are skipped with a warning; a storage
//     failure aborts.
//   - Returns how many records were inserted.
func (s *Service) Ingest(ctx context.Context) (int, error) {
	records, err := s.producer.Produce(ctx)
	if err != nil {
		s.appCtx.Logger.Warn("ingestion producer failed, using fallback set", "err", err)
		records = ingest.Fallback()
	}

	inserted := 0
	for i := range records {
		if _, err := s.opportunityRepo.Insert(ctx, &records[i]); err != nil {
			if errors.Is(err, apperr.ErrValidation) {
				s.appCtx.Logger.Warn("skipping malformed ingested record", "title", records[i].Title, "err", err)
				continue
			}
			return inserted, err
		}
		inserted++
	}

	s.appCtx.Logger.Info("ingestion complete", "inserted", inserted)
	return inserted, nil
}

// Catalog returns one cursor-paginated page of the catalog, newest first.
func (s *Service) Catalog(ctx context.Context, paginationToken *string, limit int) ([]db.Opportunity, *string, error) {
	if limit == 0 {
		limit = DefaultFeedLimit
	}
	return s.opportunityRepo.ListCreatedPage(ctx, paginationToken, limit)
}
