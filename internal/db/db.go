package db

import (
	"context"
	"time"

	"github.com/dbpedia/lookup/internal/domain/document"
	"github.com/dbpedia/lookup/internal/domain/fieldspec"
	"github.com/dbpedia/lookup/internal/domain/search/querytree"
)

// Engine is the full-text index facade: a published read snapshot plus a
// single writer that commits into it or into a staging generation.
type Engine interface {
	SnapshotSource
	Analyzer
	// Begin opens a writer. With opts.Clean set, writes go to a fresh
	// staging generation that is only published by Writer.Promote.
	Begin(ctx context.Context, opts WriterOptions) (Writer, error)
	// Clear publishes an empty generation.
	Clear(ctx context.Context) error
	// Refresh re-reads the published generation pointer and reports whether
	// the served snapshot changed.
	Refresh(ctx context.Context) (bool, error)
	Close() error
}

// WriterOptions configure a writer.
type WriterOptions struct {
	Clean bool
	// Types declares value types of fields written by the job, on top of
	// the engine's base schema. They shape the mapping of new generations.
	Types map[string]fieldspec.ValueType
}

// Analyzer splits free text the way text fields are indexed.
type Analyzer interface {
	Tokens(text string) []string
}

// SnapshotSource hands out reference-counted read snapshots.
type SnapshotSource interface {
	// Acquire pins the current snapshot. It fails with ErrIndexNotFound
	// when nothing has been published yet. Callers must Release it.
	Acquire() (Snapshot, error)
}

// Snapshot is a point-in-time view of the index.
type Snapshot interface {
	Generation() string
	Search(ctx context.Context, req *SearchRequest) (*SearchResult, error)
	Count(ctx context.Context, q querytree.Node) (uint64, error)
	Release()
}

// Writer accumulates document writes and commits them.
type Writer interface {
	// Upsert queues a full replacement of the stored document.
	Upsert(doc *document.Document) error
	// Fetch reads the committed stored fields of id from the writer's target.
	Fetch(ctx context.Context, id string) (map[string][]string, bool, error)
	// Pending returns the number of queued writes.
	Pending() int
	// Flush durably applies queued writes. On the served generation this
	// makes them visible to new snapshots and waits for pinned ones to be
	// released first.
	Flush(ctx context.Context) error
	// Promote publishes a staging generation atomically. It is a no-op for
	// writers on the served generation.
	Promote(ctx context.Context) error
	// Discard drops a staging generation. It is a no-op for writers on the
	// served generation.
	Discard() error
	// Staging reports whether the writer targets an unpublished generation.
	Staging() bool
	// Location returns the on-disk location of the writer's target.
	Location() string
	Close() error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Pinger checks connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Cache is the KV facade used for search response caching.
type Cache interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}
