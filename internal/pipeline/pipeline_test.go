package pipeline

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gigwire-data/gigwire/internal/db"
	"github.com/gigwire-data/gigwire/internal/monitoring"
)

// Helper functions

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	t.Cleanup(monitoring.Silence())

	fname := t.Name() + ".db"
	_ = os.Remove(fname)

	store, err := db.NewDB(fname)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	return store
}

func cleanupTestDB(t *testing.T, store *db.DB) {
	t.Helper()
	fname := t.Name() + ".db"
	store.Close()
	_ = os.Remove(fname)
	_ = os.Remove(fname + "-shm")
	_ = os.Remove(fname + "-wal")
}

func gigPayload(artist, venue, date string, price float64) string {
	return fmt.Sprintf(`{"artist":%q,"venue":%q,"event_date":%q,"price":%v}`,
		artist, venue, date, price)
}

// stagePayloads ingests payloads as one raw batch and runs the normalizer
// over it, returning the batch ID.
func stagePayloads(t *testing.T, store *db.DB, payloads ...string) string {
	t.Helper()
	ctx := context.Background()

	batchID, err := store.InsertRawBatch(ctx, "test_source", payloads)
	require.NoError(t, err)

	n := &Normalizer{DB: store}
	_, err = n.Stage(ctx, batchID)
	require.NoError(t, err)

	return batchID
}

func stateCount(t *testing.T, store *db.DB, state string) int64 {
	t.Helper()
	n, err := store.StagedCountByState(context.Background(), state)
	require.NoError(t, err)
	return n
}
