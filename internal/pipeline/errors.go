// Package pipeline implements the Write-Audit-Publish state machine over the
// tier store: staging normalization, the audit gate, batched idempotent
// publishing and the orchestrator that sequences them.
package pipeline

import (
	"errors"
	"fmt"
)

// ErrWorkflowRunning is returned when a workflow invocation overlaps one
// already in flight. The caller gets it immediately; the run is never queued.
var ErrWorkflowRunning = errors.New("workflow already running")

// SoftError marks a single-record validation failure. The record is
// quarantined and the pipeline keeps going.
type SoftError struct {
	Reason string
}

func (e *SoftError) Error() string { return e.Reason }

// HardError marks a structural defect: a record (or batch shape) that should
// have been impossible given the staging contract. Hard errors block
// publishing for the cycle and are surfaced to the caller, never swallowed.
type HardError struct {
	Reason string
}

func (e *HardError) Error() string { return e.Reason }

// Soft builds a SoftError.
func Soft(format string, args ...interface{}) error {
	return &SoftError{Reason: fmt.Sprintf(format, args...)}
}

// Hard builds a HardError.
func Hard(format string, args ...interface{}) error {
	return &HardError{Reason: fmt.Sprintf(format, args...)}
}

// IsSoft reports whether err is a record-level validation failure.
func IsSoft(err error) bool {
	var soft *SoftError
	return errors.As(err, &soft)
}
