package lookup

import (
	"strconv"

	"github.com/dbpedia/lookup/internal/domain/fieldspec"
	"github.com/dbpedia/lookup/internal/domain/search/result"
	"github.com/dbpedia/lookup/internal/domain/search/settings"
	indexuc "github.com/dbpedia/lookup/internal/usecase/index"
)

// ValueType is the encoding of a field inside the index.
type ValueType string

// Value types.
const (
	Text         ValueType = "text"
	String       ValueType = "string"
	Stored       ValueType = "stored"
	StoredSorted ValueType = "stored_sorted"
	Numeric      ValueType = "numeric"
	URI          ValueType = "uri"
	NGram        ValueType = "ngram"
)

// Field declares a searchable field.
type Field struct {
	Name              string
	Type              ValueType
	Weight            float64
	Tokenize          bool
	Exact             bool
	Required          bool
	AllowPartialMatch bool
	Highlight         bool
	QueryByDefault    bool
	Aliases           []string
}

func (f Field) toDomain() (fieldspec.FieldSpec, error) {
	vt, err := fieldspec.ParseValueType(string(f.Type))
	if err != nil {
		return fieldspec.FieldSpec{}, err
	}
	return fieldspec.New(f.Name, vt, fieldspec.Options{
		Weight:            f.Weight,
		Tokenize:          f.Tokenize,
		Exact:             f.Exact,
		Required:          f.Required,
		AllowPartialMatch: f.AllowPartialMatch,
		Highlight:         f.Highlight,
		QueryByDefault:    f.QueryByDefault,
		Aliases:           f.Aliases,
	})
}

// Defaults are the query settings applied when a search does not set them.
type Defaults struct {
	ExactMatchBoost   float64
	PrefixMatchBoost  float64
	FuzzyMatchBoost   float64
	FuzzyEditDistance int
	FuzzyPrefixLength int
	MaxResults        int
	MaxResultsCap     int
	MinScore          float64
}

// DefaultSettings returns the settings used when WithDefaults is not given.
func DefaultSettings() Defaults {
	return Defaults{
		ExactMatchBoost:   5,
		PrefixMatchBoost:  2,
		FuzzyMatchBoost:   1,
		FuzzyEditDistance: 1,
		FuzzyPrefixLength: 2,
		MaxResults:        100,
		MaxResultsCap:     1000,
	}
}

func (d Defaults) toDomain() settings.Defaults {
	return settings.Defaults{
		ExactMatchBoost:   d.ExactMatchBoost,
		PrefixMatchBoost:  d.PrefixMatchBoost,
		FuzzyMatchBoost:   d.FuzzyMatchBoost,
		FuzzyEditDistance: d.FuzzyEditDistance,
		FuzzyPrefixLength: d.FuzzyPrefixLength,
		MaxResults:        d.MaxResults,
		MaxResultsCap:     d.MaxResultsCap,
		MinScore:          d.MinScore,
		Format:            result.FormatJSONFull,
	}
}

// Record is one search result.
type Record struct {
	ID     string
	Score  float64
	Fields []RecordField
}

// RecordField holds the stored values of one field. Highlights is set
// for highlighted fields, one entry per value with matches wrapped in <b>.
type RecordField struct {
	Name       string
	Values     []string
	Highlights []string
}

// Get returns the values of a field.
func (r Record) Get(name string) []string {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Values
		}
	}
	return nil
}

func recordFromResult(rec result.Record) Record {
	var out Record
	for _, f := range rec.Fields {
		switch f.Name {
		case fieldspec.IDField:
			if len(f.Values) > 0 {
				out.ID = f.Values[0].Text
			}
			continue
		case result.FieldScore:
			if len(f.Values) > 0 {
				out.Score, _ = strconv.ParseFloat(f.Values[0].Text, 64)
			}
			continue
		}
		rf := RecordField{Name: f.Name, Values: make([]string, 0, len(f.Values))}
		for _, v := range f.Values {
			rf.Values = append(rf.Values, v.Text)
			if v.Highlight != "" {
				rf.Highlights = append(rf.Highlights, v.Highlight)
			}
		}
		out.Fields = append(out.Fields, rf)
	}
	return out
}

// IndexStats summarizes an index job.
type IndexStats struct {
	Bindings   int
	Written    int
	Duplicates int
	Nulls      int
	Skipped    int
	Failed     int
	Commits    int
}

func statsFromDomain(s indexuc.Stats) IndexStats {
	return IndexStats{
		Bindings:   s.Bindings,
		Written:    s.Written,
		Duplicates: s.Duplicates,
		Nulls:      s.Nulls,
		Skipped:    s.Skipped,
		Failed:     s.Failed,
		Commits:    s.Commits,
	}
}
