package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gigwire-data/gigwire/internal/httputil"
	"github.com/gigwire-data/gigwire/internal/pipeline"
	"github.com/gigwire-data/gigwire/internal/scheduler"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	dbStatus := "connected"
	if err := s.db.PingContext(r.Context()); err != nil {
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	schedStatus := "disabled"
	if s.sched != nil {
		schedStatus = "enabled"
	}

	httputil.WriteJSONOK(w, map[string]string{
		"status":    "healthy",
		"service":   "gigwire",
		"database":  dbStatus,
		"scheduler": schedStatus,
	})
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	metrics, err := s.db.PipelineMetrics(r.Context())
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to collect metrics: %v", err))
		return
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"status":  "success",
		"metrics": metrics,
	})
}

type mockIngestRequest struct {
	Count      int  `json:"count"`
	IncludeBad bool `json:"include_bad"`
}

// runMockIngest generates a mock batch, writes it to the raw tier and stages
// it, returning both ingestion and staging results.
func (s *Server) runMockIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	req := mockIngestRequest{Count: 10}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
			return
		}
	}
	if req.Count < 1 || req.Count > 10000 {
		httputil.BadRequest(w, "count must be between 1 and 10000")
		return
	}

	ingested, err := s.scraper.Run(r.Context(), s.db, req.Count, req.IncludeBad)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("mock ingest failed: %v", err))
		return
	}

	staged, err := s.normalizer.Stage(r.Context(), ingested.BatchID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("staging failed: %v", err))
		return
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"status":    "success",
		"batch_id":  ingested.BatchID,
		"generated": ingested.Generated,
		"processed": staged.Processed,
		"created":   staged.Created,
		"updated":   staged.Updated,
	})
}

func (s *Server) runAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	report, err := s.orch.Audit.Run(r.Context())
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("audit failed: %v", err))
		return
	}

	status := "success"
	if !report.Passed() {
		status = "failed"
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"status":            status,
		"error_count":       report.ErrorCount,
		"quarantined_count": report.QuarantinedCount,
		"error_summary":     report.ErrorSummary,
		"audit_passed":      report.Passed(),
	})
}

type publishRequest struct {
	BatchSize int `json:"batch_size"`
}

// runPublish runs the full WAP workflow (audit gate + publish), matching the
// semantics of the scheduled run.
func (s *Server) runPublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	req := publishRequest{BatchSize: pipeline.DefaultBatchSize}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
			return
		}
	}
	if req.BatchSize < 1 {
		httputil.BadRequest(w, "batch_size must be positive")
		return
	}

	result, err := s.orch.RunWorkflow(r.Context(), req.BatchSize)
	if errors.Is(err, pipeline.ErrWorkflowRunning) {
		httputil.Conflict(w, "a publish workflow is already running")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("workflow failed: %v", err))
		return
	}

	httputil.WriteJSONOK(w, result)
}

func (s *Server) schedulerJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	jobs := []scheduler.Job{}
	if s.sched != nil {
		jobs = s.sched.Jobs()
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"status": "success",
		"jobs":   jobs,
	})
}
