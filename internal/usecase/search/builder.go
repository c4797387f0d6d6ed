package search

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dbpedia/lookup/internal/domain"
	"github.com/dbpedia/lookup/internal/domain/fieldspec"
	"github.com/dbpedia/lookup/internal/domain/search/querytree"
	"github.com/dbpedia/lookup/internal/domain/search/settings"
)

// Builder turns field/value pairs into a weighted query tree.
type Builder struct {
	analyzer Analyzer
}

// NewBuilder creates a Builder tokenizing with a.
func NewBuilder(a Analyzer) *Builder {
	return &Builder{analyzer: a}
}

// Build combines one clause per field. Required fields are MUST clauses,
// the others SHOULD. Zero fields match everything.
func (b *Builder) Build(fields []fieldspec.FieldSpec, values []string, s settings.Settings) (querytree.Node, error) {
	if len(fields) != len(values) {
		return nil, fmt.Errorf("%w: %d fields, %d values", domain.ErrFieldMismatch, len(fields), len(values))
	}
	if len(fields) == 0 {
		return querytree.MatchAll{Boost: 1}, nil
	}

	root := querytree.NewBool()
	for i, f := range fields {
		if f.ValueType() == fieldspec.Numeric {
			if r, ok := numericRange(f.Name(), values[i]); ok {
				root.Add(r, true)
			}
			continue
		}

		tokens := b.tokens(f, values[i])
		fieldClause := querytree.NewBool()
		for _, tok := range tokens {
			tc := tokenClause(f, tok, s)
			fieldClause.Add(tc, !f.AllowPartialMatch())
		}
		root.Add(fieldClause, f.IsRequired())
	}
	return root, nil
}

func (b *Builder) tokens(f fieldspec.FieldSpec, value string) []string {
	if f.Tokenize() && b.analyzer != nil {
		return b.analyzer.Tokens(value)
	}
	if f.IsExact() {
		return []string{value}
	}
	return []string{strings.ToLower(value)}
}

// tokenClause matches one token. Exact fields take a single term clause;
// the others any of prefix, fuzzy and exact, each only when its boost is
// positive. The field weight scales the whole clause.
func tokenClause(f fieldspec.FieldSpec, token string, s settings.Settings) querytree.Node {
	if f.IsExact() {
		return querytree.Term{Field: f.Name(), Term: token, Boost: s.ExactMatchBoost() * f.Weight()}
	}

	q := querytree.NewBool()
	q.Boost = f.Weight()
	q.MinShould = 1
	if s.PrefixMatchBoost() > 0 {
		q.Add(querytree.Prefix{Field: f.Name(), Prefix: token, Boost: s.PrefixMatchBoost()}, false)
	}
	if s.FuzzyMatchBoost() > 0 {
		q.Add(querytree.Fuzzy{
			Field:     f.Name(),
			Term:      token,
			Distance:  s.FuzzyEditDistance(),
			PrefixLen: s.FuzzyPrefixLength(),
			Boost:     s.FuzzyMatchBoost(),
		}, false)
	}
	if s.ExactMatchBoost() > 0 {
		q.Add(querytree.Term{Field: f.Name(), Term: token, Boost: s.ExactMatchBoost()}, false)
	}
	return q
}

// numericRange parses "lower,upper". Unparsable bounds are open. Values
// without exactly one comma yield no clause.
func numericRange(field, value string) (querytree.NumericRange, bool) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return querytree.NumericRange{}, false
	}
	return querytree.NumericRange{
		Field: field,
		Min:   parseBound(parts[0], math.MinInt64),
		Max:   parseBound(parts[1], math.MaxInt64),
		Boost: 1,
	}, true
}

func parseBound(s string, fallback int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
