package fieldspec

import (
	"errors"
	"testing"

	"github.com/dbpedia/lookup/internal/domain"
)

func TestParseValueType(t *testing.T) {
	tests := []struct {
		in      string
		want    ValueType
		wantErr bool
	}{
		{"", Text, false},
		{"text", Text, false},
		{"NUMERIC", Numeric, false},
		{" stored_sorted ", StoredSorted, false},
		{"uri", URI, false},
		{"ngram", NGram, false},
		{"vector", "", true},
	}
	for _, tt := range tests {
		got, err := ParseValueType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseValueType(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseValueType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", Text, Options{}); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := New("score", Text, Options{}); err == nil {
		t.Error("expected error for reserved name")
	}
	if _, err := New("label", "vector", Options{}); err == nil {
		t.Error("expected error for invalid type")
	}
	if _, err := New("label", Text, Options{Weight: -1}); err == nil {
		t.Error("expected error for negative weight")
	}
	f, err := New("label", "", Options{Weight: 2, Tokenize: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.ValueType() != Text {
		t.Errorf("ValueType() = %q, want text", f.ValueType())
	}
}

func TestAliases_Copied(t *testing.T) {
	aliases := []string{"QueryString", "q"}
	f, err := New("label", Text, Options{Aliases: aliases})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	aliases[0] = "mutated"
	if f.Aliases()[0] != "QueryString" {
		t.Error("input slice mutation leaked into FieldSpec")
	}
	got := f.Aliases()
	got[1] = "mutated"
	if f.Aliases()[1] != "q" {
		t.Error("returned slice mutation leaked into FieldSpec")
	}
}

func TestOverride_DoesNotMutateBase(t *testing.T) {
	base, _ := New("label", Text, Options{Weight: 1, Tokenize: true})
	w := 3.5
	exact := true
	required := true
	got := Override{Weight: &w, Exact: &exact, Required: &required}.Apply(base)

	if got.Weight() != 3.5 || !got.IsExact() || !got.IsRequired() {
		t.Errorf("override not applied: weight=%v exact=%v required=%v",
			got.Weight(), got.IsExact(), got.IsRequired())
	}
	if !got.Tokenize() {
		t.Error("untouched attribute lost")
	}
	if base.Weight() != 1 || base.IsExact() || base.IsRequired() {
		t.Error("base FieldSpec was mutated")
	}
}

func TestOverride_NegativeWeightIgnored(t *testing.T) {
	base, _ := New("label", Text, Options{Weight: 2})
	w := -1.0
	if got := (Override{Weight: &w}).Apply(base); got.Weight() != 2 {
		t.Errorf("Weight() = %v, want 2", got.Weight())
	}
}

func TestRegistry(t *testing.T) {
	label, _ := New("label", Text, Options{})
	pop, _ := New("population", Numeric, Options{})

	r, err := NewRegistry([]FieldSpec{label, pop})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Len() != 2 || r.Fields()[1].Name() != "population" {
		t.Fatalf("unexpected field order: %+v", r.Fields())
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Error("Lookup(missing) should fail")
	}
	if got := r.TypeOf("population", ""); got != Numeric {
		t.Errorf("TypeOf(population) = %q, want numeric", got)
	}
	if got := r.TypeOf("population", StoredSorted); got != StoredSorted {
		t.Errorf("explicit type should win, got %q", got)
	}
	if got := r.TypeOf("unknown", ""); got != Text {
		t.Errorf("TypeOf(unknown) = %q, want text", got)
	}
	if types := r.Types(); len(types) != 2 || types["label"] != Text || types["population"] != Numeric {
		t.Errorf("Types() = %v", types)
	}
}

func TestRegistry_Duplicate(t *testing.T) {
	a, _ := New("label", Text, Options{})
	_, err := NewRegistry([]FieldSpec{a, a})
	if !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("err = %v, want ErrInvalidSchema", err)
	}
}
