// Package http exposes the receipt tracker as a JSON API.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"parsimonious/internal/cache"
	"parsimonious/internal/core"
	"parsimonious/internal/services"
	"parsimonious/internal/store"
)

type Server struct {
	http.Server

	store      store.Store
	receipts   *services.ReceiptService
	enrichment *services.EnrichmentService // nil when scanning is not configured

	rateLimiter *rateLimiter
	metrics     *securityMetrics

	// Read caches, keyed by "year-month", invalidated on writes.
	overviewCache *cache.LRU[core.MonthOverview]
	monthCache    *cache.LRU[[]core.Receipt]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and caches, returning a ready-to-run server.
// A nil enrichment service disables the scan endpoint.
func NewServer(addr string, st store.Store, receipts *services.ReceiptService, enrichment *services.EnrichmentService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:            st,
		receipts:         receipts,
		enrichment:       enrichment,
		rateLimiter:      newRateLimiter(),
		metrics:          &securityMetrics{},
		overviewCache:    cache.NewLRU[core.MonthOverview](100, 5*time.Minute),
		monthCache:       cache.NewLRU[[]core.Receipt](200, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/receipts", s.withMiddleware(s.handleReceipts))
	mux.HandleFunc("/receipts/scan", s.withMiddleware(s.handleScanReceipt))
	mux.HandleFunc("/receipts/", s.withMiddleware(s.handleReceiptByID))
	mux.HandleFunc("/categories", s.withMiddleware(s.handleCategories))
	mux.HandleFunc("/categories/", s.withMiddleware(s.handleCategoryByName))
	mux.HandleFunc("/budgets", s.withMiddleware(s.handleBudgets))
	mux.HandleFunc("/summary", s.withMiddleware(s.handleSummary))
	mux.HandleFunc("/summary/daily", s.withMiddleware(s.handleDailySummary))
	mux.HandleFunc("/suggest", s.withMiddleware(s.handleSuggest))
	mux.HandleFunc("/export", s.withMiddleware(s.handleExport))

	return s
}

// startCacheCleanup prunes expired cache entries periodically.
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			overviewPruned := s.overviewCache.PruneExpired()
			monthPruned := s.monthCache.PruneExpired()
			if overviewPruned > 0 || monthPruned > 0 {
				slog.Debug("Cache cleanup completed",
					"overview_entries_removed", overviewPruned,
					"month_entries_removed", monthPruned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the cleanup goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// monthKey is the cache key for a month's derived data.
func monthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// invalidateMonth drops cached data for a month and the one after it,
// whose overview quotes this month as the previous total.
func (s *Server) invalidateMonth(date core.CalendarDate) {
	s.overviewCache.Delete(monthKey(date.Year, date.Month))
	s.monthCache.Delete(monthKey(date.Year, date.Month))

	next := core.NewCalendarDate(date.Year, date.Month, 1)
	next.Month++
	if next.Month > 12 {
		next.Month = 1
		next.Year++
	}
	s.overviewCache.Delete(monthKey(next.Year, next.Month))
}

// withMiddleware adds rate limiting, security headers and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		if detectSuspiciousRequest(r, s.metrics) {
			slog.WarnContext(ctx, "Suspicious request",
				"request_id", requestID,
				"client_ip", clientIP,
				"url", r.URL.String())
		}

		// Rate limit writes only; reads are cheap and cached.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP, s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
