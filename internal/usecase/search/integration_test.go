package search

import (
	"context"
	"testing"

	"github.com/dbpedia/lookup/internal/db"
	bleveidx "github.com/dbpedia/lookup/internal/db/bleve"
	"github.com/dbpedia/lookup/internal/domain/document"
	"github.com/dbpedia/lookup/internal/domain/fieldspec"
	"github.com/dbpedia/lookup/internal/domain/search/result"
	"github.com/dbpedia/lookup/internal/domain/search/settings"
)

func openIndexed(t *testing.T, reg *fieldspec.Registry, docs ...*document.Document) *bleveidx.Store {
	t.Helper()
	types := make(map[string]fieldspec.ValueType)
	for _, f := range reg.Fields() {
		types[f.Name()] = f.ValueType()
	}
	s, err := bleveidx.Open(bleveidx.Config{Path: t.TempDir(), Types: types, RemoveRetired: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	w, err := s.Begin(ctx, db.WriterOptions{})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	for _, d := range docs {
		if err := w.Upsert(d); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return s
}

func labelled(id, label string, extra ...string) *document.Document {
	d := document.New(id)
	d.Append("label", fieldspec.Text, label)
	for i := 0; i+1 < len(extra); i += 2 {
		vt := fieldspec.URI
		if extra[i] == "refCount" {
			vt = fieldspec.Numeric
		}
		d.Append(extra[i], vt, extra[i+1])
	}
	return d
}

func engineService(t *testing.T, docs ...*document.Document) *Service {
	t.Helper()
	reg := testRegistry(t)
	s := openIndexed(t, reg, docs...)
	return New(s, reg, NewBuilder(s), NewRanker(nil, RankerConfig{}), defaults(), Metrics{})
}

func recordIDs(env result.Envelope) []string {
	out := make([]string, 0, len(env.Records))
	for _, r := range env.Records {
		out = append(out, r.Get(fieldspec.IDField)[0].Text)
	}
	return out
}

func TestEngine_ParisFirst(t *testing.T) {
	svc := engineService(t,
		labelled("http://dbpedia.org/resource/Paris_Hilton", "Paris Hilton"),
		labelled("http://dbpedia.org/resource/Paris", "Paris"),
		labelled("http://dbpedia.org/resource/Berlin", "Berlin"),
	)
	env, err := svc.Search(context.Background(), Request{Queries: []FieldQuery{{Field: "label", Value: "Paris"}}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	got := recordIDs(env)
	if len(got) != 2 || got[0] != "http://dbpedia.org/resource/Paris" {
		t.Fatalf("ids = %v", got)
	}
	if hl := env.Records[0].Get("label")[0].Text; hl != "<b>Paris</b>" {
		t.Errorf("label = %q", hl)
	}
}

func TestEngine_ExactOutranksFuzzy(t *testing.T) {
	svc := engineService(t,
		labelled("http://dbpedia.org/resource/Berlim", "Berlim"),
		labelled("http://dbpedia.org/resource/Berlin", "Berlin"),
	)
	zero := 0.0
	env, err := svc.Search(context.Background(), Request{
		Queries:  []FieldQuery{{Field: "label", Value: "berlin"}},
		Settings: settings.Override{PrefixMatchBoost: &zero},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	got := recordIDs(env)
	if len(got) != 2 || got[0] != "http://dbpedia.org/resource/Berlin" {
		t.Fatalf("ids = %v", got)
	}
}

func TestEngine_RequiredFilters(t *testing.T) {
	svc := engineService(t,
		labelled("http://dbpedia.org/resource/Paris", "Paris", "type", "http://dbpedia.org/ontology/City"),
		labelled("http://dbpedia.org/resource/Paris_(mythology)", "Paris", "type", "http://dbpedia.org/ontology/Person"),
	)
	required := true
	env, err := svc.Search(context.Background(), Request{Queries: []FieldQuery{
		{Field: "label", Value: "paris"},
		{Field: "type", Value: "http://dbpedia.org/ontology/City", Override: fieldspec.Override{Required: &required}},
	}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	got := recordIDs(env)
	if len(got) != 1 || got[0] != "http://dbpedia.org/resource/Paris" {
		t.Fatalf("ids = %v", got)
	}
}

func TestEngine_NumericRangeAndCount(t *testing.T) {
	svc := engineService(t,
		labelled("a", "Alpha", "refCount", "5"),
		labelled("b", "Beta", "refCount", "50"),
		labelled("c", "Gamma", "refCount", "500"),
	)
	zero := 0
	env, err := svc.Search(context.Background(), Request{
		Queries:  []FieldQuery{{Field: "refCount", Value: "10,1000"}},
		Settings: settings.Override{MaxResults: &zero},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := env.Records[0].Get(result.FieldCount)[0].Text; got != "2" {
		t.Fatalf("count = %s, want 2", got)
	}
}

func TestEngine_Join(t *testing.T) {
	svc := engineService(t,
		labelled("http://dbpedia.org/resource/Paris", "Paris"),
		labelled("http://dbpedia.org/resource/Paris_France", "Paris France", "redirectTo", "http://dbpedia.org/resource/Paris"),
		labelled("http://dbpedia.org/resource/Lutetia", "Lutetia", "redirectTo", "http://dbpedia.org/resource/Paris"),
	)
	env, err := svc.Search(context.Background(), Request{
		Queries: []FieldQuery{{Field: "label", Value: "lutetia"}},
		Join:    "redirectTo",
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	got := recordIDs(env)
	if len(got) != 0 {
		t.Fatalf("join returns documents holding a matched key, got %v", got)
	}

	env, err = svc.Search(context.Background(), Request{
		Queries: []FieldQuery{{Field: "label", Value: "paris"}},
		Join:    "redirectTo",
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	got = recordIDs(env)
	if len(got) != 2 {
		t.Fatalf("ids = %v, want the two redirects", got)
	}
}
