// Package client is a thin HTTP client for the feed API. It satisfies the
// queue controller's Selector and Ledger interfaces so a local queue can run
// against a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/swipe4care/opportunity-feed/internal/db"
	apperr "github.com/swipe4care/opportunity-feed/internal/errors"
)

// APIClient talks to a running feed server.
type APIClient struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given base URL, e.g. "http://127.0.0.1:3001".
func New(baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// apiError mirrors the server's error envelope.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SelectUndecided fetches the user's undecided feed.
func (c *APIClient) SelectUndecided(ctx context.Context, userID string, limit int) ([]db.Opportunity, error) {
	q := url.Values{}
	q.Set("userId", userID)
	q.Set("limit", strconv.Itoa(limit))

	var items []db.Opportunity
	if err := c.get(ctx, "/api/opportunities?"+q.Encode(), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// RecordDecision posts a swipe for (user, opportunity).
func (c *APIClient) RecordDecision(ctx context.Context, userID string, opportunityID uint64, direction db.Direction) error {
	body := map[string]any{
		"userId":        userID,
		"opportunityId": opportunityID,
		"direction":     direction,
	}
	return c.post(ctx, "/api/swipe", body, nil)
}

// Scrape triggers ingestion on the server and returns the inserted count.
func (c *APIClient) Scrape(ctx context.Context) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := c.post(ctx, "/api/scrape", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// LikedCount returns how many opportunities the user has accepted.
func (c *APIClient) LikedCount(ctx context.Context, userID string) (int64, error) {
	q := url.Values{}
	q.Set("userId", userID)

	var resp struct {
		Count int64 `json:"count"`
	}
	if err := c.get(ctx, "/api/liked/count?"+q.Encode(), &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *APIClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return apperr.Collaborator("feed api", err)
	}
	return c.do(req, out)
}

func (c *APIClient) post(ctx context.Context, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return apperr.Collaborator("feed api", err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, rd)
	if err != nil {
		return apperr.Collaborator("feed api", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *APIClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Collaborator("feed api", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Message != "" {
			return apperr.Collaborator("feed api", fmt.Errorf("%s: %s", resp.Status, apiErr.Message))
		}
		return apperr.Collaborator("feed api", fmt.Errorf("unexpected status %s", resp.Status))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperr.Collaborator("feed api", err)
		}
	}
	return nil
}
