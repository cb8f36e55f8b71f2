// Package scheduler drives the pipeline on a timer: the publish workflow at
// a fixed interval, and a daily mock-ingestion run at a configured hour. It
// is a thin external clock around the orchestrator; overlap protection lives
// in the orchestrator's run lock, the scheduler just logs skipped runs.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gigwire-data/gigwire/internal/monitoring"
	"github.com/gigwire-data/gigwire/internal/pipeline"
	"github.com/gigwire-data/gigwire/internal/timeutil"
)

// Job names reported by Jobs.
const (
	JobPublishWorkflow = "auto_publish_workflow"
	JobMockIngest      = "daily_mock_ingest"
)

// WorkflowRunner is the orchestrator surface the scheduler needs.
type WorkflowRunner interface {
	RunWorkflow(ctx context.Context, batchSize int) (pipeline.WorkflowResult, error)
}

// Job describes one scheduled job for the API.
type Job struct {
	Name     string     `json:"name"`
	Interval string     `json:"interval"`
	LastRun  *time.Time `json:"last_run,omitempty"`
	NextRun  time.Time  `json:"next_run"`
}

// Scheduler runs the periodic jobs until Stop is called.
type Scheduler struct {
	Clock     timeutil.Clock
	Interval  time.Duration // publish workflow cadence
	BatchSize int

	// IngestHour is the local hour (0-23) of the daily mock ingest.
	// Negative disables the job.
	IngestHour int

	Runner WorkflowRunner
	Ingest func(ctx context.Context) error

	stopOnce sync.Once
	stop     chan struct{}

	mu            sync.Mutex
	lastWorkflow  time.Time
	lastIngest    time.Time
	lastIngestDay time.Time
}

// New returns a scheduler over the real clock.
func New(runner WorkflowRunner, interval time.Duration, batchSize, ingestHour int, ingest func(ctx context.Context) error) *Scheduler {
	return &Scheduler{
		Clock:      timeutil.RealClock{},
		Interval:   interval,
		BatchSize:  batchSize,
		IngestHour: ingestHour,
		Runner:     runner,
		Ingest:     ingest,
		stop:       make(chan struct{}),
	}
}

// Start runs the scheduling loop in a goroutine.
func (s *Scheduler) Start() {
	go s.loop()
}

// Stop requests the scheduler to stop. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Scheduler) loop() {
	ticker := s.Clock.NewTicker(s.Interval)
	defer ticker.Stop()

	// The ingest job checks once a minute whether its daily hour arrived.
	ingestTicker := s.Clock.NewTicker(time.Minute)
	defer ingestTicker.Stop()

	for {
		select {
		case now := <-ticker.C():
			s.runWorkflow(now)
		case now := <-ingestTicker.C():
			s.maybeIngest(now)
		case <-s.stop:
			return
		}
	}
}

func (s *Scheduler) runWorkflow(now time.Time) {
	result, err := s.Runner.RunWorkflow(context.Background(), s.BatchSize)
	if errors.Is(err, pipeline.ErrWorkflowRunning) {
		monitoring.Logf("scheduler: skipped publish workflow, a run is already in flight")
		return
	}
	if err != nil {
		monitoring.Logf("scheduler: publish workflow error: %v", err)
		return
	}

	s.mu.Lock()
	s.lastWorkflow = now
	s.mu.Unlock()

	monitoring.Logf("scheduler: publish workflow %s (published=%d quarantined=%d)",
		result.Status, result.PublishedCount, result.QuarantinedCount)
}

func (s *Scheduler) maybeIngest(now time.Time) {
	if s.IngestHour < 0 || s.Ingest == nil {
		return
	}
	if now.Hour() != s.IngestHour {
		return
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	s.mu.Lock()
	alreadyRan := s.lastIngestDay.Equal(day)
	s.mu.Unlock()
	if alreadyRan {
		return
	}

	// Success marks the day done; a failed run is retried on the next tick
	// while the hour lasts.
	if err := s.Ingest(context.Background()); err != nil {
		monitoring.Logf("scheduler: daily ingest error: %v", err)
		return
	}

	s.mu.Lock()
	s.lastIngest = now
	s.lastIngestDay = day
	s.mu.Unlock()
}

// Jobs returns the configured jobs with their last and next run times.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	lastWorkflow := s.lastWorkflow
	lastIngest := s.lastIngest
	s.mu.Unlock()

	now := s.Clock.Now()

	jobs := []Job{{
		Name:     JobPublishWorkflow,
		Interval: s.Interval.String(),
		NextRun:  now.Add(s.Interval),
	}}
	if !lastWorkflow.IsZero() {
		t := lastWorkflow
		jobs[0].LastRun = &t
		jobs[0].NextRun = t.Add(s.Interval)
	}

	if s.IngestHour >= 0 {
		next := time.Date(now.Year(), now.Month(), now.Day(), s.IngestHour, 0, 0, 0, now.Location())
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}
		job := Job{
			Name:     JobMockIngest,
			Interval: "24h0m0s",
			NextRun:  next,
		}
		if !lastIngest.IsZero() {
			t := lastIngest
			job.LastRun = &t
		}
		jobs = append(jobs, job)
	}

	return jobs
}
