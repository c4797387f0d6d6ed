package result

import (
	"sort"
	"strconv"
)

// Synthetic field names added to shaped records.
const (
	FieldScore = "score"
	FieldCount = "count"
)

// ScoredDocument pairs the stored fields of a hit with its final score.
type ScoredDocument struct {
	id        string
	score     float64
	fields    map[string][]string
	fragments map[string][]string
}

// NewScored creates a ScoredDocument. Maps are owned by the result.
func NewScored(id string, score float64, fields, fragments map[string][]string) ScoredDocument {
	return ScoredDocument{id: id, score: score, fields: fields, fragments: fragments}
}

// ID returns the document identity.
func (d ScoredDocument) ID() string { return d.id }

// Score returns the final relevance score.
func (d ScoredDocument) Score() float64 { return d.score }

// WithScore returns a copy with a replaced score.
func (d ScoredDocument) WithScore(score float64) ScoredDocument {
	d.score = score
	return d
}

// Values returns the stored values of a field.
func (d ScoredDocument) Values(field string) []string { return d.fields[field] }

// Fragments returns highlighted fragments of a field.
func (d ScoredDocument) Fragments(field string) []string { return d.fragments[field] }

// FieldNames returns stored field names in sorted order.
func (d ScoredDocument) FieldNames() []string {
	names := make([]string, 0, len(d.fields))
	for k := range d.fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SortByScore orders documents by descending score, keeping engine order on ties.
func SortByScore(docs []ScoredDocument) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].score > docs[j].score
	})
}

// Value is one output value of a record field.
type Value struct {
	Text      string
	Highlight string
	// Full marks values rendered as {value, highlight} objects.
	Full bool
}

// Field is a named list of output values.
type Field struct {
	Name   string
	Values []Value
}

// Record is a shaped search result: ordered fields, score last.
type Record struct {
	Fields []Field
}

// Get returns the values of a field.
func (r Record) Get(name string) []Value {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Values
		}
	}
	return nil
}

// Envelope is the response body of a search.
type Envelope struct {
	Format  Format
	Records []Record
}

// Key returns the envelope key for the response format.
func (e Envelope) Key() string { return e.Format.EnvelopeKey() }

// CountEnvelope builds the degenerate result of a count-only search.
func CountEnvelope(f Format, total uint64) Envelope {
	return Envelope{
		Format: f,
		Records: []Record{{Fields: []Field{
			{Name: FieldCount, Values: []Value{{Text: strconv.FormatUint(total, 10)}}},
			{Name: FieldScore, Values: []Value{{Text: "1"}}},
		}}},
	}
}

// FormatScore renders a score the way records carry it.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 32)
}
