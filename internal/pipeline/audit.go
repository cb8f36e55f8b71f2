package pipeline

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/gigwire-data/gigwire/internal/db"
	"github.com/gigwire-data/gigwire/internal/monitoring"
)

// AuditReport summarizes one audit pass. It is produced fresh on every call
// and never persisted.
type AuditReport struct {
	// ErrorCount is the number of hard (structural) failures. Any nonzero
	// value blocks publishing for the cycle.
	ErrorCount int `json:"error_count"`
	// QuarantinedCount is the number of records isolated by soft validation
	// failures. Quarantines never block publishing.
	QuarantinedCount int `json:"quarantined_count"`
	// ErrorSummary concatenates the distinct hard-error reasons.
	ErrorSummary string `json:"error_summary"`
}

// Passed reports whether the audit gate allows publishing.
func (r AuditReport) Passed() bool { return r.ErrorCount == 0 }

// AuditEngine scans pending staged records and classifies each one through
// the validation policy.
type AuditEngine struct {
	DB     *db.DB
	Policy ValidationPolicy
}

// Run audits all pending staged records. Clean records transition to clean,
// failing ones to quarantined with their reason recorded. Soft failures only
// accumulate QuarantinedCount; hard failures additionally count toward
// ErrorCount and the summary, so the caller sees the audit as failed while
// the per-record quarantine still persists (subsequent runs must not
// re-process records already judged).
//
// The returned error reports transactional failure only; a failed audit with
// a healthy store returns a report with ErrorCount > 0 and a nil error.
func (e *AuditEngine) Run(ctx context.Context) (AuditReport, error) {
	var report AuditReport
	hardReasons := make(map[string]struct{})

	err := e.DB.WithTx(ctx, func(tx *sql.Tx) error {
		pending, err := db.PendingTx(ctx, tx)
		if err != nil {
			return err
		}

		for i := range pending {
			rec := &pending[i]
			verdict := e.Policy.Validate(rec)

			if verdict == nil {
				if err := db.SetStateTx(ctx, tx, rec.ID, db.StateClean, nil); err != nil {
					return err
				}
				continue
			}

			reason := verdict.Error()
			if err := db.SetStateTx(ctx, tx, rec.ID, db.StateQuarantined, &reason); err != nil {
				return err
			}

			if IsSoft(verdict) {
				report.QuarantinedCount++
			} else {
				// Anything the policy does not explicitly mark soft is
				// structural: an unclassified failure must never slip
				// through the gate looking like an isolated bad record.
				report.ErrorCount++
				hardReasons[reason] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return AuditReport{}, err
	}

	report.ErrorSummary = summarize(hardReasons)

	switch {
	case report.ErrorCount > 0:
		monitoring.Logf("audit failed: %d hard errors (%s), %d quarantined",
			report.ErrorCount, report.ErrorSummary, report.QuarantinedCount)
	case report.QuarantinedCount > 0:
		monitoring.Logf("audit passed with %d records quarantined", report.QuarantinedCount)
	}

	return report, nil
}

func summarize(reasons map[string]struct{}) string {
	if len(reasons) == 0 {
		return ""
	}
	distinct := make([]string, 0, len(reasons))
	for r := range reasons {
		distinct = append(distinct, r)
	}
	sort.Strings(distinct)
	return strings.Join(distinct, "; ")
}
