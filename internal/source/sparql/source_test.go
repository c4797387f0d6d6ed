package sparql

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/dbpedia/lookup/internal/domain/job"
)

const labelResults = `{
  "head": {"vars": ["bindings", "resource", "label"]},
  "results": {"bindings": [
    {"resource": {"type": "uri", "value": "http://dbpedia.org/resource/Paris"},
     "label": {"type": "literal", "xml:lang": "en", "value": "Paris"}},
    {"resource": {"type": "uri", "value": "http://dbpedia.org/resource/Lyon"}},
    {"label": {"type": "literal", "value": "orphan"}}
  ]}
}`

const typeResults = `{"head": {"vars": ["resource", "type"]}, "results": {"bindings": [
  {"resource": {"type": "uri", "value": "http://dbpedia.org/resource/Paris"},
   "type": {"type": "uri", "value": "http://dbpedia.org/ontology/City"}}
]}}`

type endpoint struct {
	mu      sync.Mutex
	queries []string
	accepts []string
	agents  []string
}

func newEndpoint(t *testing.T, status int) (*httptest.Server, *endpoint) {
	t.Helper()
	e := &endpoint{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		q := r.PostForm.Get("query")
		e.mu.Lock()
		e.queries = append(e.queries, q)
		e.accepts = append(e.accepts, r.Header.Get("Accept"))
		e.agents = append(e.agents, r.Header.Get("User-Agent"))
		e.mu.Unlock()

		if status != http.StatusOK {
			http.Error(w, "syntax error", status)
			return
		}
		w.Header().Set("Content-Type", resultsMediaType)
		if strings.Contains(q, "rdf:type") {
			_, _ = w.Write([]byte(typeResults))
			return
		}
		_, _ = w.Write([]byte(labelResults))
	}))
	t.Cleanup(srv.Close)
	return srv, e
}

func testJob(endpoint string) job.Job {
	return job.Job{
		Mode:           job.ModeSPARQL,
		SPARQLEndpoint: endpoint,
		Bindings: []job.Binding{
			{FieldName: "label", DocumentVariable: "resource", Query: "SELECT ?resource ?label WHERE { ?resource rdfs:label ?label }"},
			{FieldName: "type", DocumentVariable: "resource", Query: "SELECT ?resource ?type WHERE { ?resource rdf:type ?type }"},
		},
	}
}

func collect(t *testing.T, s *Source, j job.Job) []job.Triple {
	t.Helper()
	var out []job.Triple
	if err := s.Stream(context.Background(), j, func(tr job.Triple) error {
		out = append(out, tr)
		return nil
	}); err != nil {
		t.Fatalf("Stream: %v", err)
	}
	return out
}

func TestStream_Sequential(t *testing.T) {
	srv, e := newEndpoint(t, http.StatusOK)
	s := New(Config{}, zap.NewNop())

	got := collect(t, s, testJob(srv.URL))
	if len(got) != 3 {
		t.Fatalf("triples = %d, want 3", len(got))
	}
	if got[0].Key != "http://dbpedia.org/resource/Paris" || got[0].Field != "label" || *got[0].Value != "Paris" {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].Key != "http://dbpedia.org/resource/Lyon" || got[1].Value != nil {
		t.Errorf("unbound value must be nil: %+v", got[1])
	}
	if got[2].Field != "type" || *got[2].Value != "http://dbpedia.org/ontology/City" {
		t.Errorf("got[2] = %+v", got[2])
	}
	for _, a := range e.accepts {
		if a != resultsMediaType {
			t.Errorf("Accept = %q", a)
		}
	}
	for _, a := range e.agents {
		if !strings.HasPrefix(a, "dbpedia-lookup/") {
			t.Errorf("User-Agent = %q", a)
		}
	}
}

func TestStream_Parallel(t *testing.T) {
	srv, e := newEndpoint(t, http.StatusOK)
	s := New(Config{Parallelism: 4}, zap.NewNop())

	got := collect(t, s, testJob(srv.URL))
	if len(got) != 3 {
		t.Fatalf("triples = %d, want 3", len(got))
	}
	if len(e.queries) != 2 {
		t.Errorf("queries = %d, want 2", len(e.queries))
	}
}

func TestStream_EndpointError(t *testing.T) {
	srv, _ := newEndpoint(t, http.StatusBadRequest)
	s := New(Config{}, zap.NewNop())

	err := s.Stream(context.Background(), testJob(srv.URL), func(job.Triple) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestStream_CallbackErrorStops(t *testing.T) {
	srv, _ := newEndpoint(t, http.StatusOK)
	s := New(Config{}, zap.NewNop())
	stop := errors.New("stop")

	calls := 0
	err := s.Stream(context.Background(), testJob(srv.URL), func(job.Triple) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times after failing", calls)
	}
}

func TestDecodeBindings_Empty(t *testing.T) {
	n := 0
	err := decodeBindings(strings.NewReader(`{"head": {"vars": []}, "results": {"bindings": []}}`), func(map[string]term) error {
		n++
		return nil
	})
	if err != nil || n != 0 {
		t.Fatalf("n = %d, err = %v", n, err)
	}
}

func TestDecodeBindings_Malformed(t *testing.T) {
	err := decodeBindings(strings.NewReader(`{"results": {"bindings": [{"a": `), func(map[string]term) error { return nil })
	if err == nil {
		t.Fatal("expected decode error")
	}
}
