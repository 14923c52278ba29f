package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/swipe4care/opportunity-feed/internal/app"
	"github.com/swipe4care/opportunity-feed/internal/cache"
	"github.com/swipe4care/opportunity-feed/internal/config"
	"github.com/swipe4care/opportunity-feed/internal/db"
	apperr "github.com/swipe4care/opportunity-feed/internal/errors"
	"github.com/swipe4care/opportunity-feed/internal/ingest"
	"github.com/swipe4care/opportunity-feed/internal/server"
	"github.com/swipe4care/opportunity-feed/internal/service/feed"
)

type failingProducer struct{}

func (failingProducer) Produce(context.Context) ([]db.Opportunity, error) {
	return nil, apperr.Collaborator("scrape", errors.New("upstream down"))
}

// setupServer builds a full router backed by in-memory SQLite and miniredis.
func setupServer(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, gdb.AutoMigrate(&db.Opportunity{}, &db.Swipe{}))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(gdb, cache.NewRedisCache(cfg), logger)
	svc := feed.NewService(appCtx, failingProducer{})

	return server.NewHTTPServer(cfg, appCtx, svc).Router(), gdb
}

func insertOpportunity(t *testing.T, gdb *gorm.DB, title string, age time.Duration) uint64 {
	t.Helper()
	o := db.Opportunity{
		Title: title, Description: "d", Organization: "Org",
		Category: db.CategoryResearch, URL: "https://example.org/" + title,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond).Add(-age),
	}
	require.NoError(t, gdb.Create(&o).Error)
	return o.ID
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestOpportunitiesEmptyFeedIsEmptyArray(t *testing.T) {
	router, _ := setupServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/opportunities", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestSwipeFlow(t *testing.T) {
	router, gdb := setupServer(t)
	older := insertOpportunity(t, gdb, "older", 2*time.Minute)
	newer := insertOpportunity(t, gdb, "newer", time.Minute)

	// feed shows both, newest first
	rec := doJSON(t, router, http.MethodGet, "/api/opportunities", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var feedItems []db.Opportunity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feedItems))
	require.Len(t, feedItems, 2)
	assert.Equal(t, newer, feedItems[0].ID)

	// accept the newest
	rec = doJSON(t, router, http.MethodPost, "/api/swipe", map[string]any{
		"opportunityId": newer,
		"direction":     "accept",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// it leaves the feed
	rec = doJSON(t, router, http.MethodGet, "/api/opportunities", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feedItems))
	require.Len(t, feedItems, 1)
	assert.Equal(t, older, feedItems[0].ID)

	// and shows up as liked
	rec = doJSON(t, router, http.MethodGet, "/api/liked", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var liked []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &liked))
	require.Len(t, liked, 1)

	rec = doJSON(t, router, http.MethodGet, "/api/liked/count", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":1}`, rec.Body.String())
}

func TestSwipeValidationAndNotFound(t *testing.T) {
	router, _ := setupServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/swipe", map[string]any{
		"opportunityId": 0,
		"direction":     "accept",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/swipe", map[string]any{
		"opportunityId": 12345,
		"direction":     "accept",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/swipe", map[string]any{
		"opportunityId": 12345,
		"direction":     "sideways",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveLiked(t *testing.T) {
	router, gdb := setupServer(t)
	id := insertOpportunity(t, gdb, "one", time.Minute)

	rec := doJSON(t, router, http.MethodPost, "/api/swipe", map[string]any{
		"opportunityId": id,
		"direction":     "accept",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/liked/%d", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// second delete: nothing there anymore
	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/liked/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/liked/notanumber", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScrapeFallsBack(t *testing.T) {
	router, _ := setupServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/scrape", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		Count   int    `json:"count"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, len(ingest.Fallback()), resp.Count)
}

func TestCatalogPaging(t *testing.T) {
	router, gdb := setupServer(t)
	insertOpportunity(t, gdb, "one", 2*time.Minute)
	insertOpportunity(t, gdb, "two", time.Minute)

	rec := doJSON(t, router, http.MethodGet, "/api/catalog?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Opportunities []db.Opportunity `json:"opportunities"`
		Next          string           `json:"nextPaginationToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Opportunities, 1)
	require.NotEmpty(t, page.Next)

	rec = doJSON(t, router, http.MethodGet, "/api/catalog?limit=1&paginationToken="+page.Next, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page2 struct {
		Opportunities []db.Opportunity `json:"opportunities"`
		Next          string           `json:"nextPaginationToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page2))
	require.Len(t, page2.Opportunities, 1)
	assert.Empty(t, page2.Next)
	assert.NotEqual(t, page.Opportunities[0].ID, page2.Opportunities[0].ID)
}
