package health

import (
	"context"

	"github.com/dbpedia/lookup/internal/db"
)

// SnapshotSource hands out the served index snapshot.
type SnapshotSource interface {
	Acquire() (db.Snapshot, error)
}

// CachePinger checks response cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}
