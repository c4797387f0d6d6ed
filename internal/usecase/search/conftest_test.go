package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dbpedia/lookup/internal/db"
	"github.com/dbpedia/lookup/internal/domain/fieldspec"
	"github.com/dbpedia/lookup/internal/domain/search/querytree"
	"github.com/dbpedia/lookup/internal/domain/search/result"
	"github.com/dbpedia/lookup/internal/domain/search/settings"
)

// mockSnapshot records requests and answers from searchFn/countFn.
type mockSnapshot struct {
	searchFn func(ctx context.Context, req *db.SearchRequest) (*db.SearchResult, error)
	countFn  func(ctx context.Context, q querytree.Node) (uint64, error)

	requests []*db.SearchRequest
	released int
}

func (m *mockSnapshot) Generation() string { return "gen-test" }
func (m *mockSnapshot) Release()           { m.released++ }

func (m *mockSnapshot) Search(ctx context.Context, req *db.SearchRequest) (*db.SearchResult, error) {
	m.requests = append(m.requests, req)
	if m.searchFn != nil {
		return m.searchFn(ctx, req)
	}
	return &db.SearchResult{}, nil
}

func (m *mockSnapshot) Count(ctx context.Context, q querytree.Node) (uint64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, q)
	}
	return 0, nil
}

type mockIndex struct {
	snap *mockSnapshot
	err  error
}

func (m *mockIndex) Acquire() (db.Snapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.snap, nil
}

// splitAnalyzer lowercases and splits on spaces.
type splitAnalyzer struct{}

func (splitAnalyzer) Tokens(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// mockAdjuster multiplies by the value of a single variable.
type mockAdjuster struct {
	variable string
}

func (m mockAdjuster) Variables() []string { return []string{m.variable} }

func (m mockAdjuster) Multiplier(values map[string]float64) (float64, bool) {
	v, ok := values[m.variable]
	return v, ok
}

func hit(id string, score float64, kv ...string) db.SearchHit {
	fields := map[string][]string{fieldspec.IDField: {id}}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i]] = append(fields[kv[i]], kv[i+1])
	}
	return db.SearchHit{ID: id, Score: score, Fields: fields}
}

func defaults() settings.Defaults {
	return settings.Defaults{
		ExactMatchBoost:   5,
		PrefixMatchBoost:  2,
		FuzzyMatchBoost:   1,
		FuzzyEditDistance: 1,
		FuzzyPrefixLength: 2,
		MaxResults:        100,
		MaxResultsCap:     1000,
		Format:            result.FormatJSON,
	}
}

func field(t *testing.T, name string, vt fieldspec.ValueType, opts fieldspec.Options) fieldspec.FieldSpec {
	t.Helper()
	f, err := fieldspec.New(name, vt, opts)
	if err != nil {
		t.Fatalf("fieldspec.New(%s): %v", name, err)
	}
	return f
}

func testRegistry(t *testing.T) *fieldspec.Registry {
	t.Helper()
	reg, err := fieldspec.NewRegistry([]fieldspec.FieldSpec{
		field(t, "label", fieldspec.Text, fieldspec.Options{
			Weight: 1, Tokenize: true, Highlight: true, QueryByDefault: true,
		}),
		field(t, "type", fieldspec.URI, fieldspec.Options{Weight: 1, Exact: true}),
		field(t, "population", fieldspec.Numeric, fieldspec.Options{}),
		field(t, "refCount", fieldspec.Numeric, fieldspec.Options{}),
		field(t, "redirectTo", fieldspec.URI, fieldspec.Options{Weight: 1, Exact: true}),
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func ptr[T any](v T) *T { return &v }

var errBoom = errors.New("boom")
