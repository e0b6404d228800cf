package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/innov8academy/newsletter-auto/internal/news"
	"github.com/innov8academy/newsletter-auto/internal/rss"
	"github.com/innov8academy/newsletter-auto/internal/storage"
)

const (
	defaultNewsDays     = 3
	defaultReportsLimit = 10
)

type curateRequest struct {
	APIKey      string           `json:"apiKey"`
	CustomFeeds []rss.FeedSource `json:"customFeeds"`
}

type curateResponse struct {
	Success bool                `json:"success"`
	Count   int                 `json:"count"`
	Stories []news.CuratedStory `json:"stories"`
	Stats   news.Stats          `json:"stats"`
}

type newsResponse struct {
	Success bool           `json:"success"`
	Count   int            `json:"count"`
	Items   []rss.NewsItem `json:"items"`
}

type reportsResponse struct {
	Success bool             `json:"success"`
	Count   int              `json:"count"`
	Reports []storage.Report `json:"reports"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Router returns the HTTP API.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(a.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", a.healthHandler)
	r.Get("/metrics", a.metricsHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/curate", a.curateHandler)
		r.Get("/news", a.newsHandler)
		r.Get("/reports", a.reportsHandler)
		r.Get("/reports/latest", a.latestReportHandler)
	})
	return r
}

// Serve runs the API on addr until ctx is cancelled.
func (a *App) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting http server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (a *App) curateHandler(w http.ResponseWriter, r *http.Request) {
	var req curateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		a.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	res, err := a.Curate(r.Context(), req.APIKey, req.CustomFeeds, func(p news.Progress) {
		a.logger.Debug("curation progress", "stage", p.Stage, "current", p.Current, "total", p.Total, "message", p.Message)
	})
	if errors.Is(err, news.ErrAPIKeyRequired) {
		a.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "API key required"})
		return
	}
	if err != nil {
		a.logger.Error("curation failed", "error", err)
		a.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Curation failed"})
		return
	}

	a.writeJSON(w, http.StatusOK, curateResponse{
		Success: true,
		Count:   len(res.Stories),
		Stories: res.Stories,
		Stats:   res.Stats,
	})
}

func (a *App) newsHandler(w http.ResponseWriter, r *http.Request) {
	days := defaultNewsDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			a.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "days must be a non-negative integer"})
			return
		}
		days = n
	}

	items := a.News(r.Context(), days)
	a.writeJSON(w, http.StatusOK, newsResponse{Success: true, Count: len(items), Items: items})
}

func (a *App) reportsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultReportsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			a.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	reports, err := a.Reports(r.Context(), limit)
	if err != nil {
		a.logger.Error("failed to list reports", "error", err)
		a.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to list reports"})
		return
	}
	a.writeJSON(w, http.StatusOK, reportsResponse{Success: true, Count: len(reports), Reports: reports})
}

func (a *App) latestReportHandler(w http.ResponseWriter, r *http.Request) {
	report, err := a.LatestReport(r.Context())
	if errors.Is(err, storage.ErrNotFound) {
		a.writeJSON(w, http.StatusNotFound, errorResponse{Error: "No reports yet"})
		return
	}
	if err != nil {
		a.logger.Error("failed to load report", "error", err)
		a.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to load report"})
		return
	}
	a.writeJSON(w, http.StatusOK, report)
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := a.metrics.GetStats()

	status, code := "ok", http.StatusOK
	if !a.metrics.Healthy() {
		status, code = "error", http.StatusServiceUnavailable
	}

	a.writeJSON(w, code, map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	})
}

func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.metrics.GetStats())
}

func (a *App) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Debug("failed to write response", "status", status, "error", err)
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
