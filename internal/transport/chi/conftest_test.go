package chi

import (
	"context"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dbpedia/lookup/internal/domain/fieldspec"
	"github.com/dbpedia/lookup/internal/domain/job"
	"github.com/dbpedia/lookup/internal/domain/search/result"
	healthuc "github.com/dbpedia/lookup/internal/usecase/health"
	indexuc "github.com/dbpedia/lookup/internal/usecase/index"
	searchuc "github.com/dbpedia/lookup/internal/usecase/search"
)

// --- mockSearcher ---

type mockSearcher struct {
	searchFn   func(ctx context.Context, req searchuc.Request) (result.Envelope, error)
	generation string
	requests   []searchuc.Request
}

func (m *mockSearcher) Search(ctx context.Context, req searchuc.Request) (result.Envelope, error) {
	m.requests = append(m.requests, req)
	if m.searchFn != nil {
		return m.searchFn(ctx, req)
	}
	return result.Envelope{Format: result.FormatXML}, nil
}

func (m *mockSearcher) Generation() string { return m.generation }

// --- mockJobRunner ---

type mockJobRunner struct {
	startFn  func(ctx context.Context, j job.Job) (string, error)
	statusFn func() (indexuc.Status, bool)
	started  []job.Job
}

func (m *mockJobRunner) Start(ctx context.Context, j job.Job) (string, error) {
	m.started = append(m.started, j)
	if m.startFn != nil {
		return m.startFn(ctx, j)
	}
	return "job-1", nil
}

func (m *mockJobRunner) Status() (indexuc.Status, bool) {
	if m.statusFn != nil {
		return m.statusFn()
	}
	return indexuc.Status{}, false
}

// --- mockIndexAdmin ---

type mockIndexAdmin struct {
	clearFn   func(ctx context.Context) error
	refreshFn func(ctx context.Context) (bool, error)
	cleared   int
}

func (m *mockIndexAdmin) Clear(ctx context.Context) error {
	m.cleared++
	if m.clearFn != nil {
		return m.clearFn(ctx)
	}
	return nil
}

func (m *mockIndexAdmin) Refresh(ctx context.Context) (bool, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx)
	}
	return false, nil
}

// --- mockHealth ---

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// --- helpers ---

type testDeps struct {
	search *mockSearcher
	jobs   *mockJobRunner
	index  *mockIndexAdmin
	health *mockHealth
}

func newTestRouter(t *testing.T, opts Options) (chi.Router, *testDeps) {
	t.Helper()
	deps := &testDeps{
		search: &mockSearcher{generation: "gen-1"},
		jobs:   &mockJobRunner{},
		index:  &mockIndexAdmin{},
		health: &mockHealth{report: healthuc.Report{
			Status:     healthuc.Healthy,
			Generation: "gen-1",
			Checks:     map[string]healthuc.CheckResult{"index": healthuc.CheckOK},
		}},
	}
	srv := NewServer(deps.search, testRegistry(t), deps.jobs, deps.index, deps.health, opts, zap.NewNop())
	r := chi.NewRouter()
	srv.Routes(r)
	return r, deps
}

func testRegistry(t *testing.T) *fieldspec.Registry {
	t.Helper()
	fields := []struct {
		name string
		vt   fieldspec.ValueType
		opts fieldspec.Options
	}{
		{"label", fieldspec.Text, fieldspec.Options{Weight: 1, Tokenize: true, Highlight: true, QueryByDefault: true}},
		{"comment", fieldspec.Text, fieldspec.Options{Weight: 0.5, Tokenize: true, QueryByDefault: true}},
		{"type", fieldspec.URI, fieldspec.Options{Weight: 1, Exact: true, Aliases: []string{"QueryClass", "typeName"}}},
		{"refCount", fieldspec.Numeric, fieldspec.Options{}},
	}
	specs := make([]fieldspec.FieldSpec, 0, len(fields))
	for _, f := range fields {
		fs, err := fieldspec.New(f.name, f.vt, f.opts)
		if err != nil {
			t.Fatalf("field %s: %v", f.name, err)
		}
		specs = append(specs, fs)
	}
	reg, err := fieldspec.NewRegistry(specs)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func sampleEnvelope(f result.Format) result.Envelope {
	return result.Envelope{
		Format: f,
		Records: []result.Record{{Fields: []result.Field{
			{Name: "id", Values: []result.Value{{Text: "http://dbpedia.org/resource/Paris"}}},
			{Name: "label", Values: []result.Value{{Text: "Paris", Highlight: "<b>Paris</b>", Full: f == result.FormatJSONFull}}},
			{Name: "type", Values: []result.Value{
				{Text: "http://dbpedia.org/ontology/City"},
				{Text: "http://dbpedia.org/ontology/Place"},
			}},
			{Name: "score", Values: []result.Value{{Text: "4.2"}}},
		}}},
	}
}

const sparqlJobYAML = `version: "1.0"
indexMode: INDEX_SPARQL_ENDPOINT
sparqlEndpoint: http://localhost:8890/sparql
cleanIndex: true
indexFields:
  - fieldName: label
    documentVariable: city
    query: SELECT ?city ?label WHERE { #VALUES# ?city rdfs:label ?label }
`
