package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/swipe4care/opportunity-feed/internal/app"
	"github.com/swipe4care/opportunity-feed/internal/config"
	"github.com/swipe4care/opportunity-feed/internal/handler"
	"github.com/swipe4care/opportunity-feed/internal/middleware"
	"github.com/swipe4care/opportunity-feed/internal/service/feed"
)

const shutdownTimeout = 10 * time.Second

// HTTPServer wires the feed service into a chi router and manages the
// listener lifecycle.
type HTTPServer struct {
	appCtx *app.AppContext
	cfg    *config.Config
	router chi.Router
	srv    *http.Server
}

// NewHTTPServer builds the router and registers all /api routes.
func NewHTTPServer(cfg *config.Config, appCtx *app.AppContext, svc *feed.Service) *HTTPServer {
	h := handler.NewFeedHandler(svc, appCtx.Logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(appCtx.Logger))
	r.Use(chimiddleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/opportunities", h.HandleOpportunities)
		r.Post("/swipe", h.HandleSwipe)
		r.Get("/liked", h.HandleLiked)
		r.Get("/liked/count", h.HandleLikedCount)
		r.Delete("/liked/{opportunityID}", h.HandleRemoveLiked)
		r.Post("/scrape", h.HandleScrape)
		r.Get("/catalog", h.HandleCatalog)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &HTTPServer{
		appCtx: appCtx,
		cfg:    cfg,
		router: r,
		srv: &http.Server{
			Addr:              net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Router exposes the assembled handler, mainly for httptest.
func (s *HTTPServer) Router() http.Handler {
	return s.router
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully.
func (s *HTTPServer) Start() error {
	errCh := make(chan error, 1)
	go func() {
		s.appCtx.Logger.Info("HTTP server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-quit:
		s.appCtx.Logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
