package pipeline

import (
	"context"
	"fmt"

	"github.com/gigwire-data/gigwire/internal/db"
	"github.com/gigwire-data/gigwire/internal/monitoring"
)

// Workflow statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// WorkflowResult carries the outcome of one orchestrator invocation.
type WorkflowResult struct {
	Status           string `json:"status"`
	ErrorCount       int    `json:"error_count"`
	QuarantinedCount int    `json:"quarantined_count"`
	PublishedCount   int    `json:"published_count"`
	Message          string `json:"message"`
}

// Orchestrator sequences Audit then Publish and enforces the gate: nothing
// reaches the published tier while the audit reports hard errors. It is the
// only component allowed to call both engines in one pass.
type Orchestrator struct {
	Audit   *AuditEngine
	Publish *PublishEngine

	// running is a single-slot run lock. The scheduler and on-demand callers
	// may fire concurrently; only one workflow executes, the rest get
	// ErrWorkflowRunning immediately.
	running chan struct{}
}

// NewOrchestrator wires both engines over one store with the given policies.
func NewOrchestrator(store *db.DB, vp ValidationPolicy, ap AggregationPolicy) *Orchestrator {
	return &Orchestrator{
		Audit:   &AuditEngine{DB: store, Policy: vp},
		Publish: &PublishEngine{DB: store, Policy: ap},
		running: make(chan struct{}, 1),
	}
}

// RunWorkflow executes one Audit -> Publish pass. Publishing is skipped
// entirely when the audit reports any hard error; quarantines alone never
// fail the workflow. A call that overlaps a run already in flight returns
// ErrWorkflowRunning without touching the store.
func (o *Orchestrator) RunWorkflow(ctx context.Context, batchSize int) (WorkflowResult, error) {
	select {
	case o.running <- struct{}{}:
	default:
		return WorkflowResult{}, ErrWorkflowRunning
	}
	defer func() { <-o.running }()

	report, err := o.Audit.Run(ctx)
	if err != nil {
		return WorkflowResult{}, fmt.Errorf("audit stage failed: %w", err)
	}

	if !report.Passed() {
		monitoring.Logf("workflow: publish skipped, audit reported %d hard errors", report.ErrorCount)
		return WorkflowResult{
			Status:           StatusFailed,
			ErrorCount:       report.ErrorCount,
			QuarantinedCount: report.QuarantinedCount,
			PublishedCount:   0,
			Message:          fmt.Sprintf("audit failed: %s", report.ErrorSummary),
		}, nil
	}

	published, err := o.Publish.Run(ctx, batchSize)
	if err != nil {
		return WorkflowResult{}, fmt.Errorf("publish stage failed: %w", err)
	}

	return WorkflowResult{
		Status:           StatusSuccess,
		ErrorCount:       0,
		QuarantinedCount: report.QuarantinedCount,
		PublishedCount:   published.PublishedCount,
		Message:          published.Message,
	}, nil
}
