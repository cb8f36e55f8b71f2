package pipeline

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/gigwire-data/gigwire/internal/db"
)

// Normalizer converts a raw batch into staged records, deduplicating against
// existing staged rows by identity key. The whole batch stages in one
// transaction: either every record normalizes or none does.
type Normalizer struct {
	DB *db.DB

	// AllowRepublishCorrection controls whether a corrected re-ingestion may
	// reopen an already-published record. Off by default: published data is
	// immutable history.
	AllowRepublishCorrection bool
}

// StageResult reports one normalization run.
type StageResult struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
}

// Stage loads the raw records of batchID and upserts them into the staging
// tier as pending. Re-ingested keys update the existing row; quarantined and
// clean rows return to pending so a corrected listing gets re-audited.
//
// A raw payload that does not decode is still staged (keyed by a hash of the
// raw bytes) so the audit gate, not ingestion, decides what happens to it.
func (n *Normalizer) Stage(ctx context.Context, batchID string) (StageResult, error) {
	var result StageResult

	raws, err := n.DB.RawBatch(ctx, batchID)
	if err != nil {
		return result, fmt.Errorf("failed to load raw batch %s: %w", batchID, err)
	}
	if len(raws) == 0 {
		return result, fmt.Errorf("no raw records for batch %s", batchID)
	}

	err = n.DB.WithTx(ctx, func(tx *sql.Tx) error {
		for _, raw := range raws {
			key, payload := normalizeRaw(raw.Payload)

			created, written, err := db.UpsertStagedTx(ctx, tx, key, payload, raw.Source, batchID, n.AllowRepublishCorrection)
			if err != nil {
				return err
			}
			result.Processed++
			if created {
				result.Created++
			} else if written {
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return StageResult{}, err
	}

	return result, nil
}

// normalizeRaw produces the identity key and canonical payload for one raw
// record. A payload that decodes is normalized and re-marshaled; one that
// doesn't passes through unchanged under a content hash so the audit can
// classify it.
func normalizeRaw(payload string) (key, canonical string) {
	var gig db.Gig
	if err := json.Unmarshal([]byte(payload), &gig); err != nil {
		sum := sha1.Sum([]byte(payload))
		return fmt.Sprintf("%x", sum), payload
	}

	gig.Normalize()
	out, err := json.Marshal(&gig)
	if err != nil {
		// Gig round-trips cleanly; reaching this means a marshal bug, not bad data.
		sum := sha1.Sum([]byte(payload))
		return fmt.Sprintf("%x", sum), payload
	}

	return gig.IdentityKey(), string(out)
}
