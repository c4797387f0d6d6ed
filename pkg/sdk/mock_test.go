package lookup

import (
	"context"
	"testing"

	"github.com/dbpedia/lookup/internal/domain/fieldspec"
	"github.com/dbpedia/lookup/internal/domain/job"
	"github.com/dbpedia/lookup/internal/domain/search/result"
	healthuc "github.com/dbpedia/lookup/internal/usecase/health"
	indexuc "github.com/dbpedia/lookup/internal/usecase/index"
	searchuc "github.com/dbpedia/lookup/internal/usecase/search"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn   func(ctx context.Context, req searchuc.Request) (result.Envelope, error)
	generation string
}

func (m *mockSearchUC) Search(ctx context.Context, req searchuc.Request) (result.Envelope, error) {
	return m.searchFn(ctx, req)
}

func (m *mockSearchUC) Generation() string { return m.generation }

// --- indexUseCase mock ---

type mockIndexUC struct {
	runFn func(ctx context.Context, j job.Job) (indexuc.Stats, error)
}

func (m *mockIndexUC) Run(ctx context.Context, j job.Job) (indexuc.Stats, error) {
	return m.runFn(ctx, j)
}

// --- adminUseCase mock ---

type mockAdminUC struct {
	clearFn   func(ctx context.Context) error
	refreshFn func(ctx context.Context) (bool, error)
}

func (m *mockAdminUC) Clear(ctx context.Context) error { return m.clearFn(ctx) }

func (m *mockAdminUC) Refresh(ctx context.Context) (bool, error) { return m.refreshFn(ctx) }

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

func testRegistry(t *testing.T) *fieldspec.Registry {
	t.Helper()
	fields := []Field{
		{Name: "label", Type: Text, Weight: 1, Tokenize: true, Highlight: true, QueryByDefault: true},
		{Name: "comment", Type: Text, Weight: 0.5, Tokenize: true, QueryByDefault: true},
		{Name: "type", Type: URI, Weight: 1, Exact: true},
		{Name: "redirectTo", Type: URI, Weight: 1, Exact: true},
	}
	specs := make([]fieldspec.FieldSpec, 0, len(fields))
	for _, f := range fields {
		spec, err := f.toDomain()
		if err != nil {
			t.Fatalf("field %s: %v", f.Name, err)
		}
		specs = append(specs, spec)
	}
	reg, err := fieldspec.NewRegistry(specs)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func mockClient(t *testing.T) *Client {
	t.Helper()
	return &Client{registry: testRegistry(t)}
}
