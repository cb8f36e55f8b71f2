// Package api exposes the pipeline operations over HTTP. It is a thin
// collaborator: every route maps 1:1 to an orchestrator, engine or store
// operation and returns its structured result as JSON.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gigwire-data/gigwire/internal/db"
	"github.com/gigwire-data/gigwire/internal/ingest"
	"github.com/gigwire-data/gigwire/internal/monitoring"
	"github.com/gigwire-data/gigwire/internal/pipeline"
	"github.com/gigwire-data/gigwire/internal/scheduler"
	"github.com/gigwire-data/gigwire/internal/version"
)

// ANSI escape codes for request logging
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

type Server struct {
	db         *db.DB
	orch       *pipeline.Orchestrator
	normalizer *pipeline.Normalizer
	scraper    *ingest.MockScraper
	sched      *scheduler.Scheduler
}

// NewServer wires the API over the store and pipeline components. sched may
// be nil when the periodic trigger is disabled.
func NewServer(store *db.DB, orch *pipeline.Orchestrator, normalizer *pipeline.Normalizer, scraper *ingest.MockScraper, sched *scheduler.Scheduler) *Server {
	return &Server{
		db:         store,
		orch:       orch,
		normalizer: normalizer,
		scraper:    scraper,
		sched:      sched,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the API routes, to be mounted under /api/v1.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.health)
	mux.HandleFunc("/metrics", s.metrics)
	mux.HandleFunc("/ingest/mock", s.runMockIngest)
	mux.HandleFunc("/wap/audit", s.runAudit)
	mux.HandleFunc("/wap/publish", s.runPublish)
	mux.HandleFunc("/scheduler/jobs", s.schedulerJobs)
	return mux
}

// Describe returns the root service descriptor.
func Describe() map[string]interface{} {
	return map[string]interface{}{
		"service":     "gigwire",
		"version":     version.Version,
		"description": "WAP pipeline for scraped gig listings",
		"endpoints": map[string]string{
			"health":         "GET /api/v1/health",
			"metrics":        "GET /api/v1/metrics",
			"mock_ingest":    "POST /api/v1/ingest/mock",
			"wap_audit":      "POST /api/v1/wap/audit",
			"wap_publish":    "POST /api/v1/wap/publish",
			"scheduler_jobs": "GET /api/v1/scheduler/jobs",
		},
	}
}
