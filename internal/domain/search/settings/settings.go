package settings

import "github.com/dbpedia/lookup/internal/domain/search/result"

// MaxFuzzyEditDistance is the largest edit distance the engine supports.
const MaxFuzzyEditDistance = 2

// Defaults are the server-wide query settings.
type Defaults struct {
	ExactMatchBoost   float64
	PrefixMatchBoost  float64
	FuzzyMatchBoost   float64
	FuzzyEditDistance int
	FuzzyPrefixLength int
	MaxResults        int
	MaxResultsCap     int
	MinScore          float64
	Format            result.Format
}

// Override holds request-level changes. Nil members keep the default.
type Override struct {
	ExactMatchBoost   *float64
	PrefixMatchBoost  *float64
	FuzzyMatchBoost   *float64
	FuzzyEditDistance *int
	FuzzyPrefixLength *int
	MaxResults        *int
	MinScore          *float64
	Format            *result.Format
}

// Settings are the effective, immutable settings of one search request.
type Settings struct {
	exactMatchBoost   float64
	prefixMatchBoost  float64
	fuzzyMatchBoost   float64
	fuzzyEditDistance int
	fuzzyPrefixLength int
	maxResults        int
	minScore          float64
	format            result.Format
}

// New copies the defaults, applies o and caps maxResults by MaxResultsCap.
func New(d Defaults, o Override) Settings {
	s := Settings{
		exactMatchBoost:   d.ExactMatchBoost,
		prefixMatchBoost:  d.PrefixMatchBoost,
		fuzzyMatchBoost:   d.FuzzyMatchBoost,
		fuzzyEditDistance: d.FuzzyEditDistance,
		fuzzyPrefixLength: d.FuzzyPrefixLength,
		maxResults:        d.MaxResults,
		minScore:          d.MinScore,
		format:            d.Format,
	}
	if o.ExactMatchBoost != nil {
		s.exactMatchBoost = *o.ExactMatchBoost
	}
	if o.PrefixMatchBoost != nil {
		s.prefixMatchBoost = *o.PrefixMatchBoost
	}
	if o.FuzzyMatchBoost != nil {
		s.fuzzyMatchBoost = *o.FuzzyMatchBoost
	}
	if o.FuzzyEditDistance != nil {
		s.fuzzyEditDistance = *o.FuzzyEditDistance
	}
	if o.FuzzyPrefixLength != nil {
		s.fuzzyPrefixLength = *o.FuzzyPrefixLength
	}
	if o.MaxResults != nil && *o.MaxResults >= 0 {
		s.maxResults = *o.MaxResults
	}
	if o.MinScore != nil {
		s.minScore = *o.MinScore
	}
	if o.Format != nil {
		s.format = *o.Format
	}

	if d.MaxResultsCap > 0 && s.maxResults > d.MaxResultsCap {
		s.maxResults = d.MaxResultsCap
	}
	if s.maxResults < 0 {
		s.maxResults = 0
	}
	if s.fuzzyEditDistance < 0 {
		s.fuzzyEditDistance = 0
	}
	if s.fuzzyEditDistance > MaxFuzzyEditDistance {
		s.fuzzyEditDistance = MaxFuzzyEditDistance
	}
	if s.fuzzyPrefixLength < 0 {
		s.fuzzyPrefixLength = 0
	}
	if s.format == "" {
		s.format = result.FormatXML
	}
	return s
}

func (s Settings) ExactMatchBoost() float64  { return s.exactMatchBoost }
func (s Settings) PrefixMatchBoost() float64 { return s.prefixMatchBoost }
func (s Settings) FuzzyMatchBoost() float64  { return s.fuzzyMatchBoost }
func (s Settings) FuzzyEditDistance() int    { return s.fuzzyEditDistance }
func (s Settings) FuzzyPrefixLength() int    { return s.fuzzyPrefixLength }

// MaxResults is the result limit. Zero requests a count only.
func (s Settings) MaxResults() int { return s.maxResults }

// MinScore drops results scoring strictly below it.
func (s Settings) MinScore() float64 { return s.minScore }

func (s Settings) Format() result.Format { return s.format }
