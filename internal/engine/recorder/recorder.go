// Package recorder persists decision snapshots and replays them.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Vodeneev/adnbet/internal/pkg/models"
	"github.com/Vodeneev/adnbet/internal/pkg/storage"
)

// Recorder writes one snapshot per analyzed match, BET and SKIP alike.
type Recorder struct {
	store storage.SnapshotStore
	now   func() time.Time
}

func New(store storage.SnapshotStore) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// Record assigns the snapshot id and creation time, then upserts the row. It
// returns false when the stored row already carries the same or a newer source
// data version; the stored row is then left as it was.
func (r *Recorder) Record(ctx context.Context, snap *models.DecisionSnapshot) (bool, error) {
	if snap == nil {
		return false, fmt.Errorf("snapshot cannot be nil")
	}
	if snap.SnapshotID == "" {
		snap.SnapshotID = uuid.NewString()
	}
	snap.CreatedAt = r.now().UTC()

	written, err := r.store.Upsert(ctx, snap)
	if err != nil {
		return false, fmt.Errorf("failed to record snapshot: %w", err)
	}
	if !written {
		slog.Debug("Snapshot kept, stored row is not older",
			"match_id", snap.MatchID,
			"source_data_version", snap.SourceDataVersion)
	}
	return written, nil
}

// Get returns the recorded snapshot of a match, or nil.
func (r *Recorder) Get(ctx context.Context, matchID string) (*models.DecisionSnapshot, error) {
	return r.store.Get(ctx, matchID)
}
