package index

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dbpedia/lookup/internal/db"
	"github.com/dbpedia/lookup/internal/domain/document"
	"github.com/dbpedia/lookup/internal/domain/fieldspec"
	"github.com/dbpedia/lookup/internal/domain/job"
	"github.com/dbpedia/lookup/internal/domain/search/querytree"
)

// mockWriter is an in-memory db.Writer. Flush moves queued documents into
// the committed set.
type mockWriter struct {
	mu        sync.Mutex
	staging   bool
	pending   map[string]*document.Document
	committed map[string]map[string][]string

	fetchFn   func(ctx context.Context, id string) (map[string][]string, bool, error)
	upsertFn  func(doc *document.Document) error
	flushFn   func(ctx context.Context) error
	promoteFn func(ctx context.Context) error

	fetches   int
	flushes   int
	promoted  bool
	discarded bool
	closed    bool
}

func newMockWriter(staging bool) *mockWriter {
	return &mockWriter{
		staging:   staging,
		pending:   make(map[string]*document.Document),
		committed: make(map[string]map[string][]string),
	}
}

func (m *mockWriter) Upsert(doc *document.Document) error {
	if m.upsertFn != nil {
		if err := m.upsertFn(doc); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[doc.ID()] = doc.Clone()
	return nil
}

func (m *mockWriter) Fetch(ctx context.Context, id string) (map[string][]string, bool, error) {
	m.mu.Lock()
	m.fetches++
	m.mu.Unlock()
	if m.fetchFn != nil {
		return m.fetchFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.committed[id]
	return f, ok, nil
}

func (m *mockWriter) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *mockWriter) Flush(ctx context.Context) error {
	if m.flushFn != nil {
		if err := m.flushFn(ctx); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, d := range m.pending {
		fields := make(map[string][]string)
		for _, f := range d.Fields() {
			fields[f] = d.Values(f)
		}
		m.committed[id] = fields
	}
	m.pending = make(map[string]*document.Document)
	m.flushes++
	return nil
}

func (m *mockWriter) Promote(ctx context.Context) error {
	if !m.staging {
		return nil
	}
	if m.promoteFn != nil {
		if err := m.promoteFn(ctx); err != nil {
			return err
		}
	}
	m.promoted = true
	m.staging = false
	return nil
}

func (m *mockWriter) Discard() error {
	if m.staging {
		m.discarded = true
	}
	return nil
}

func (m *mockWriter) Staging() bool    { return m.staging }
func (m *mockWriter) Location() string { return "/tmp/index/gen-test" }

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

type mockSnapshot struct{ gen string }

func (s *mockSnapshot) Generation() string { return s.gen }
func (s *mockSnapshot) Release()           {}

func (s *mockSnapshot) Search(_ context.Context, _ *db.SearchRequest) (*db.SearchResult, error) {
	return &db.SearchResult{}, nil
}

func (s *mockSnapshot) Count(_ context.Context, _ querytree.Node) (uint64, error) {
	return 0, nil
}

// mockEngine hands out a fresh mockWriter per Begin unless beginFn is set.
type mockEngine struct {
	beginFn   func(ctx context.Context, opts db.WriterOptions) (db.Writer, error)
	clearFn   func(ctx context.Context) error
	refreshFn func(ctx context.Context) (bool, error)

	lastOpts db.WriterOptions
	writers  []*mockWriter
	gen      string
}

func (m *mockEngine) Acquire() (db.Snapshot, error) {
	if m.gen == "" {
		return nil, db.ErrIndexNotFound
	}
	return &mockSnapshot{gen: m.gen}, nil
}

func (m *mockEngine) Begin(ctx context.Context, opts db.WriterOptions) (db.Writer, error) {
	m.lastOpts = opts
	if m.beginFn != nil {
		return m.beginFn(ctx, opts)
	}
	w := newMockWriter(opts.Clean)
	m.writers = append(m.writers, w)
	return w, nil
}

func (m *mockEngine) Clear(ctx context.Context) error {
	if m.clearFn != nil {
		return m.clearFn(ctx)
	}
	return nil
}

func (m *mockEngine) Refresh(ctx context.Context) (bool, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx)
	}
	return false, nil
}

// mockSource replays a fixed list of triples, then returns err.
type mockSource struct {
	triples []job.Triple
	err     error
}

func (m *mockSource) Stream(_ context.Context, _ job.Job, fn func(job.Triple) error) error {
	for _, t := range m.triples {
		if err := fn(t); err != nil {
			return err
		}
	}
	return m.err
}

var errBoom = errors.New("boom")

func testRegistry(t *testing.T) *fieldspec.Registry {
	t.Helper()
	label, err := fieldspec.New("label", fieldspec.Text, fieldspec.Options{Weight: 1, Tokenize: true})
	if err != nil {
		t.Fatalf("fieldspec: %v", err)
	}
	ref, err := fieldspec.New("refCount", fieldspec.Numeric, fieldspec.Options{})
	if err != nil {
		t.Fatalf("fieldspec: %v", err)
	}
	reg, err := fieldspec.NewRegistry([]fieldspec.FieldSpec{label, ref})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func triple(key, field, value string) job.Triple {
	return job.Triple{Key: key, Field: field, Value: &value}
}

func testJob(clean bool, interval int) job.Job {
	return job.Job{
		Mode:           job.ModeParquet,
		DataPath:       "/data",
		CleanIndex:     clean,
		CommitInterval: interval,
		Bindings: []job.Binding{
			{FieldName: "label", DocumentVariable: "resource", Query: "label/*.parquet"},
			{FieldName: "refCount", DocumentVariable: "resource", Query: "refcount/*.parquet"},
		},
	}
}
