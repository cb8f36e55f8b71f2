package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPipelineMetrics_Empty(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	metrics, err := db.PipelineMetrics(context.Background())
	if err != nil {
		t.Fatalf("PipelineMetrics failed: %v", err)
	}

	want := map[string]int64{
		StatePending:      0,
		StateClean:        0,
		StateQuarantined:  0,
		StatePublished:    0,
		"raw_total":       0,
		"published_total": 0,
	}
	if diff := cmp.Diff(want, metrics); diff != "" {
		t.Errorf("metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestPipelineMetrics_Conservation(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)
	ctx := context.Background()

	// 4 pending, 3 clean, 2 quarantined, 1 published: every staged record
	// must land in exactly one state bucket.
	total := 0
	for state, n := range map[string]int{
		StatePending:     4,
		StateClean:       3,
		StateQuarantined: 2,
		StatePublished:   1,
	} {
		for i := 0; i < n; i++ {
			id := stageTestRecord(t, db, fmt.Sprintf("%s-%d", state, i), `{"artist":"a"}`)
			if state != StatePending {
				var reason *string
				if state == StateQuarantined {
					reason = strPtr("bad record")
				}
				setState(t, db, id, state, reason)
			}
			total++
		}
	}

	metrics, err := db.PipelineMetrics(ctx)
	if err != nil {
		t.Fatalf("PipelineMetrics failed: %v", err)
	}

	sum := metrics[StatePending] + metrics[StateClean] + metrics[StateQuarantined] + metrics[StatePublished]
	if sum != int64(total) {
		t.Errorf("state counts sum to %d, want %d (metrics: %v)", sum, total, metrics)
	}
	if metrics[StatePending] != 4 || metrics[StateClean] != 3 ||
		metrics[StateQuarantined] != 2 || metrics[StatePublished] != 1 {
		t.Errorf("unexpected per-state counts: %v", metrics)
	}
}
