package index

import (
	"context"

	"github.com/dbpedia/lookup/internal/db"
	"github.com/dbpedia/lookup/internal/domain/job"
)

// Engine is the index engine contract of the commit controller.
type Engine interface {
	Acquire() (db.Snapshot, error)
	Begin(ctx context.Context, opts db.WriterOptions) (db.Writer, error)
	Clear(ctx context.Context) error
	Refresh(ctx context.Context) (bool, error)
}

// TripleSource streams the bindings of a job. fn is called sequentially;
// a non-nil error from fn stops the stream and is returned.
type TripleSource interface {
	Stream(ctx context.Context, j job.Job, fn func(job.Triple) error) error
}
