package pipeline

import (
	"context"
	"crypto/sha1"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gigwire-data/gigwire/internal/db"
)

func TestStage_CreatesPendingRecords(t *testing.T) {
	store := setupTestDB(t)
	defer cleanupTestDB(t, store)
	ctx := context.Background()

	batchID, err := store.InsertRawBatch(ctx, "test_source", []string{
		gigPayload("Sobs", "Decline", "2026-09-12", 25),
		gigPayload("Forests", "Hood Bar", "2026-09-13", 20),
	})
	require.NoError(t, err)

	n := &Normalizer{DB: store}
	result, err := n.Stage(ctx, batchID)
	require.NoError(t, err)

	require.Equal(t, StageResult{Processed: 2, Created: 2, Updated: 0}, result)
	require.EqualValues(t, 2, stateCount(t, store, db.StatePending))
}

func TestStage_UnknownBatch(t *testing.T) {
	store := setupTestDB(t)
	defer cleanupTestDB(t, store)

	n := &Normalizer{DB: store}
	_, err := n.Stage(context.Background(), "no-such-batch")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no raw records")
}

func TestStage_ReingestionUpdatesExistingKey(t *testing.T) {
	store := setupTestDB(t)
	defer cleanupTestDB(t, store)
	ctx := context.Background()

	// Whitespace and casing differences collapse to the same identity key.
	stagePayloads(t, store, gigPayload("Sobs", "Decline", "2026-09-12", 25))

	batchID, err := store.InsertRawBatch(ctx, "test_source", []string{
		gigPayload("  SOBS ", "decline", "2026-09-12", 30),
	})
	require.NoError(t, err)

	n := &Normalizer{DB: store}
	result, err := n.Stage(ctx, batchID)
	require.NoError(t, err)
	require.Equal(t, StageResult{Processed: 1, Created: 0, Updated: 1}, result)

	gig := db.Gig{Artist: "Sobs", Venue: "Decline", EventDate: "2026-09-12"}
	rec, err := store.StagedByKey(ctx, gig.IdentityKey())
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, db.StatePending, rec.State)
	require.Contains(t, rec.Payload, "30")
	require.Equal(t, batchID, rec.SourceBatchID)
}

func TestStage_UndecodablePayloadStillStages(t *testing.T) {
	store := setupTestDB(t)
	defer cleanupTestDB(t, store)
	ctx := context.Background()

	raw := `{{{not json`
	stagePayloads(t, store, raw)

	key := fmt.Sprintf("%x", sha1.Sum([]byte(raw)))
	rec, err := store.StagedByKey(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, db.StatePending, rec.State)
	require.Equal(t, raw, rec.Payload)
}
