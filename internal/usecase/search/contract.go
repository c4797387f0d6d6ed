package search

import "github.com/dbpedia/lookup/internal/db"

// SnapshotSource hands out the served index snapshot.
type SnapshotSource interface {
	Acquire() (db.Snapshot, error)
}

// Analyzer splits query text the way text fields are indexed.
type Analyzer interface {
	Tokens(text string) []string
}

// ScoreAdjuster rescales a relevance score from a document's numeric fields.
// ok is false when the adjustment does not apply and the score stays as is.
type ScoreAdjuster interface {
	Variables() []string
	Multiplier(values map[string]float64) (m float64, ok bool)
}
