package document

import (
	"testing"

	"github.com/dbpedia/lookup/internal/domain/fieldspec"
)

func TestAppend_Idempotent(t *testing.T) {
	d := New("http://dbpedia.org/resource/Paris")

	if !d.Append("label", fieldspec.Text, "Paris") {
		t.Fatal("first append should change the document")
	}
	if d.Append("label", fieldspec.Text, "Paris") {
		t.Error("second identical append should be a no-op")
	}
	if got := d.Values("label"); len(got) != 1 || got[0] != "Paris" {
		t.Errorf("Values(label) = %v, want [Paris]", got)
	}
}

func TestAppend_MultiValueOrder(t *testing.T) {
	d := New("k")
	d.Append("label", fieldspec.Text, "Paris")
	d.Append("type", fieldspec.URI, "http://dbpedia.org/ontology/City")
	d.Append("label", fieldspec.Text, "Paname")

	if got := d.Fields(); len(got) != 2 || got[0] != "label" || got[1] != "type" {
		t.Errorf("Fields() = %v, want [label type]", got)
	}
	if got := d.Values("label"); len(got) != 2 || got[1] != "Paname" {
		t.Errorf("Values(label) = %v", got)
	}
	if d.Len() != 3 {
		t.Errorf("Len() = %d, want 3", d.Len())
	}
}

func TestAppend_NumericReplaces(t *testing.T) {
	d := New("k")
	d.Append("population", fieldspec.Numeric, "100")
	d.Append("population", fieldspec.Numeric, "200")

	if got := d.Values("population"); len(got) != 1 || got[0] != "200" {
		t.Errorf("Values(population) = %v, want [200]", got)
	}
	if d.Type("population") != fieldspec.Numeric {
		t.Errorf("Type(population) = %q", d.Type("population"))
	}
}

func TestAppend_IdentityFieldRejected(t *testing.T) {
	d := New("k")
	if d.Append(fieldspec.IDField, fieldspec.String, "other") {
		t.Error("identity field must not be appended")
	}
	if d.ID() != "k" {
		t.Errorf("ID() = %q", d.ID())
	}
}

func TestClone_Independent(t *testing.T) {
	d := New("k")
	d.Append("label", fieldspec.Text, "a")
	c := d.Clone()
	c.Append("label", fieldspec.Text, "b")

	if len(d.Values("label")) != 1 {
		t.Error("clone mutation leaked into original")
	}
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"2148000", 2148000, false},
		{" -5 ", -5, false},
		{"12.5", 0, true},
		{"", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseNumeric(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseNumeric(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseNumeric(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
