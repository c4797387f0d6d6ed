package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dbpedia/lookup/internal/domain"
	"github.com/dbpedia/lookup/internal/domain/fieldspec"
	"github.com/dbpedia/lookup/internal/domain/job"
	"github.com/dbpedia/lookup/internal/domain/search/result"
)

const minimalConfig = `
index:
  path: ${LOOKUP_TEST_INDEX:-/tmp/lookup-index}
search:
  exact_match_boost: 5
  prefix_match_boost: 2
  fuzzy_match_boost: 1
fields:
  - name: label
    type: text
    tokenize: true
    highlight: true
    query_by_default: true
    aliases: [QueryString]
  - name: refCount
    type: numeric
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 8082 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if cfg.Index.Path != "/tmp/lookup-index" {
		t.Errorf("index path = %q", cfg.Index.Path)
	}
	if cfg.Index.JoinBound != 10000 || cfg.Indexer.LogInterval != 100000 {
		t.Errorf("join bound = %d, log interval = %d", cfg.Index.JoinBound, cfg.Indexer.LogInterval)
	}

	d := cfg.Search.Defaults()
	if d.FuzzyEditDistance != 1 || d.FuzzyPrefixLength != 2 || d.MaxResults != 100 {
		t.Errorf("defaults = %+v", d)
	}
	if d.Format != result.FormatXML {
		t.Errorf("format = %q", d.Format)
	}
	if *cfg.Fields[0].Weight != 1 {
		t.Errorf("weight default = %v", *cfg.Fields[0].Weight)
	}
}

func TestParse_ExplicitZeroKept(t *testing.T) {
	data := strings.Replace(minimalConfig, "fuzzy_match_boost: 1", "fuzzy_match_boost: 1\n  fuzzy_edit_distance: 0\n  max_results: 0", 1)
	cfg, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := cfg.Search.Defaults()
	if d.FuzzyEditDistance != 0 || d.MaxResults != 0 {
		t.Errorf("explicit zeros overwritten: %+v", d)
	}
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("LOOKUP_TEST_INDEX", "/data/index")
	cfg, err := Parse([]byte(minimalConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Index.Path != "/data/index" {
		t.Errorf("index path = %q", cfg.Index.Path)
	}
}

func TestRegistry(t *testing.T) {
	cfg, err := Parse([]byte(minimalConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reg, err := cfg.Registry()
	if err != nil {
		t.Fatalf("Registry: %v", err)
	}
	label, ok := reg.Lookup("label")
	if !ok || !label.Tokenize() || !label.QueryByDefault() || label.Aliases()[0] != "QueryString" {
		t.Errorf("label = %+v", label)
	}
	if rc, _ := reg.Lookup("refCount"); rc.ValueType() != fieldspec.Numeric {
		t.Errorf("refCount type = %q", rc.ValueType())
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no fields", "search: {}\n"},
		{"duplicate field", minimalConfig + "  - name: label\n"},
		{"bad type", minimalConfig + "  - name: vec\n    type: vector\n"},
		{"reserved name", minimalConfig + "  - name: score\n"},
		{"bad format", strings.Replace(minimalConfig, "search:", "search:\n  format: CSV", 1)},
		{"bad formula", strings.Replace(minimalConfig, "search:", "search:\n  boost_formula: \"log(\"", 1)},
		{"cache without addrs", minimalConfig + "cache:\n  enabled: true\n"},
		{"bad port", minimalConfig + "http:\n  port: 70000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

const sparqlJob = `
version: "1.0"
indexMode: INDEX_SPARQL_ENDPOINT
sparqlEndpoint: ${LOOKUP_TEST_ENDPOINT:-http://localhost:8890/sparql}
cleanIndex: true
commitInterval: 5000
indexFields:
  - fieldName: label
    documentVariable: resource
    query: >
      SELECT ?resource ?label WHERE { #VALUES# ?resource rdfs:label ?label }
  - fieldName: refCount
    documentVariable: resource
    type: numeric
    query: SELECT ?resource ?refCount WHERE { ?resource <count> ?refCount }
`

func TestParseJob(t *testing.T) {
	j, err := ParseJob([]byte(sparqlJob))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.Mode != job.ModeSPARQL || j.SPARQLEndpoint != "http://localhost:8890/sparql" {
		t.Errorf("mode = %q, endpoint = %q", j.Mode, j.SPARQLEndpoint)
	}
	if !j.CleanIndex || j.CommitInterval != 5000 {
		t.Errorf("clean = %v, interval = %d", j.CleanIndex, j.CommitInterval)
	}
	if len(j.Bindings) != 2 || j.Bindings[1].Type != fieldspec.Numeric || j.Bindings[0].Type != "" {
		t.Errorf("bindings = %+v", j.Bindings)
	}
}

func TestParseJob_Invalid(t *testing.T) {
	tests := map[string]string{
		"syntax":      "indexFields: [",
		"no fields":   "sparqlEndpoint: http://x\n",
		"bad type":    strings.Replace(sparqlJob, "type: numeric", "type: vector", 1),
		"no endpoint": strings.Replace(sparqlJob, "sparqlEndpoint: ${LOOKUP_TEST_ENDPOINT:-http://localhost:8890/sparql}", "", 1),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseJob([]byte(data)); !errors.Is(err, domain.ErrInvalidJob) {
				t.Fatalf("err = %v, want ErrInvalidJob", err)
			}
		})
	}
}

func TestLoadJob_RelativeDataPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.yaml")
	data := "indexMode: INDEX_PARQUET\ndataPath: data\nindexFields:\n  - fieldName: label\n    documentVariable: resource\n    query: \"*.parquet\"\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	j, err := LoadJob(path)
	if err != nil {
		t.Fatalf("LoadJob: %v", err)
	}
	if j.DataPath != filepath.Join(dir, "data") {
		t.Errorf("dataPath = %q", j.DataPath)
	}
	if j.CommitInterval != job.DefaultCommitInterval {
		t.Errorf("commit interval = %d", j.CommitInterval)
	}
}
