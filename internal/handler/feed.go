package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/swipe4care/opportunity-feed/internal/db"
	apperr "github.com/swipe4care/opportunity-feed/internal/errors"
	"github.com/swipe4care/opportunity-feed/internal/repository"
	"github.com/swipe4care/opportunity-feed/internal/service/feed"
)

// DefaultUserID stands in for real identity at the REST boundary only; the
// core layers below require an explicit user and never default it.
const DefaultUserID = "default"

// FeedHandler exposes the feed service over REST.
type FeedHandler struct {
	svc *feed.Service
	log *slog.Logger
}

// NewFeedHandler creates the handler for all /api routes.
func NewFeedHandler(svc *feed.Service, log *slog.Logger) *FeedHandler {
	return &FeedHandler{svc: svc, log: log}
}

// swipeRequest is the body of POST /api/swipe.
type swipeRequest struct {
	UserID        string       `json:"userId"`
	OpportunityID uint64       `json:"opportunityId"`
	Direction     db.Direction `json:"direction"`
}

// HandleOpportunities serves GET /api/opportunities?userId=&limit=.
func (h *FeedHandler) HandleOpportunities(w http.ResponseWriter, r *http.Request) {
	userID := userIDParam(r)

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, apperr.Validation("limit must be an integer"))
			return
		}
		limit = n
	}

	items, err := h.svc.GetFeed(r.Context(), userID, limit)
	if err != nil {
		h.log.Error("GetFeed failed", "user", userID, "err", err)
		writeError(w, err)
		return
	}
	if items == nil {
		items = []db.Opportunity{}
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleSwipe serves POST /api/swipe.
func (h *FeedHandler) HandleSwipe(w http.ResponseWriter, r *http.Request) {
	var req swipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body"))
		return
	}
	if req.UserID == "" {
		req.UserID = DefaultUserID
	}

	if err := h.svc.PutSwipe(r.Context(), req.UserID, req.OpportunityID, req.Direction); err != nil {
		h.log.Error("PutSwipe failed", "user", req.UserID, "opportunity", req.OpportunityID, "err", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// HandleLiked serves GET /api/liked?userId=.
func (h *FeedHandler) HandleLiked(w http.ResponseWriter, r *http.Request) {
	userID := userIDParam(r)

	liked, err := h.svc.ListLiked(r.Context(), userID)
	if err != nil {
		h.log.Error("ListLiked failed", "user", userID, "err", err)
		writeError(w, err)
		return
	}
	if liked == nil {
		liked = []repository.AcceptedOpportunity{}
	}
	writeJSON(w, http.StatusOK, liked)
}

// HandleLikedCount serves GET /api/liked/count?userId=.
func (h *FeedHandler) HandleLikedCount(w http.ResponseWriter, r *http.Request) {
	userID := userIDParam(r)

	count, err := h.svc.CountLiked(r.Context(), userID)
	if err != nil {
		h.log.Error("CountLiked failed", "user", userID, "err", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// HandleRemoveLiked serves DELETE /api/liked/{opportunityID}?userId=.
func (h *FeedHandler) HandleRemoveLiked(w http.ResponseWriter, r *http.Request) {
	userID := userIDParam(r)

	opportunityID, err := strconv.ParseUint(chi.URLParam(r, "opportunityID"), 10, 64)
	if err != nil {
		writeError(w, apperr.Validation("opportunityId must be a valid integer"))
		return
	}

	removed, err := h.svc.RemoveLiked(r.Context(), userID, opportunityID)
	if err != nil {
		h.log.Error("RemoveLiked failed", "user", userID, "opportunity", opportunityID, "err", err)
		writeError(w, err)
		return
	}
	if !removed {
		writeError(w, apperr.NotFound("liked opportunity", opportunityID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Opportunity removed from liked list",
	})
}

// HandleScrape serves POST /api/scrape.
func (h *FeedHandler) HandleScrape(w http.ResponseWriter, r *http.Request) {
	h.log.Info("starting scrape for new opportunities")

	count, err := h.svc.Ingest(r.Context())
	if err != nil {
		h.log.Error("Ingest failed", "err", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   count,
		"message": fmt.Sprintf("Successfully scraped %d new opportunities", count),
	})
}

// HandleCatalog serves GET /api/catalog?paginationToken=&limit=.
func (h *FeedHandler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	var token *string
	if v := r.URL.Query().Get("paginationToken"); v != "" {
		token = &v
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, apperr.Validation("limit must be an integer"))
			return
		}
		limit = n
	}

	page, next, err := h.svc.Catalog(r.Context(), token, limit)
	if err != nil {
		h.log.Error("Catalog failed", "err", err)
		writeError(w, err)
		return
	}
	if page == nil {
		page = []db.Opportunity{}
	}
	resp := map[string]any{"opportunities": page}
	if next != nil {
		resp["nextPaginationToken"] = *next
	}
	writeJSON(w, http.StatusOK, resp)
}

func userIDParam(r *http.Request) string {
	if v := r.URL.Query().Get("userId"); v != "" {
		return v
	}
	return DefaultUserID
}
