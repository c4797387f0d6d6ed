package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dbpedia/lookup/internal/domain/fieldspec"
	"github.com/dbpedia/lookup/internal/domain/search/result"
	"github.com/dbpedia/lookup/internal/domain/search/settings"
	searchuc "github.com/dbpedia/lookup/internal/usecase/search"
)

// SearchBuilder is a fluent builder for search queries.
type SearchBuilder struct {
	client *Client

	query    *string
	values   map[string]string
	override map[string]*fieldspec.Override
	join     string
	settings settings.Override
}

// Search starts a query.
func (c *Client) Search() *SearchBuilder {
	return &SearchBuilder{
		client:   c,
		values:   make(map[string]string),
		override: make(map[string]*fieldspec.Override),
	}
}

// Query sets the text searched in every field marked QueryByDefault.
func (b *SearchBuilder) Query(q string) *SearchBuilder {
	b.query = &q
	return b
}

// Field searches value in one field, replacing the default query there.
func (b *SearchBuilder) Field(name, value string) *SearchBuilder {
	b.values[name] = value
	return b
}

func (b *SearchBuilder) fieldOverride(name string) *fieldspec.Override {
	o, ok := b.override[name]
	if !ok {
		o = &fieldspec.Override{}
		b.override[name] = o
	}
	return o
}

// Weight overrides the weight of a field for this query.
func (b *SearchBuilder) Weight(field string, w float64) *SearchBuilder {
	b.fieldOverride(field).Weight = &w
	return b
}

// Required makes a field a must-match clause for this query.
func (b *SearchBuilder) Required(field string, v bool) *SearchBuilder {
	b.fieldOverride(field).Required = &v
	return b
}

// Exact switches a field between exact and token matching for this query.
func (b *SearchBuilder) Exact(field string, v bool) *SearchBuilder {
	b.fieldOverride(field).Exact = &v
	return b
}

// Tokenize switches query tokenization of a field for this query.
func (b *SearchBuilder) Tokenize(field string, v bool) *SearchBuilder {
	b.fieldOverride(field).Tokenize = &v
	return b
}

// Highlight switches highlighting of a field for this query.
func (b *SearchBuilder) Highlight(field string, v bool) *SearchBuilder {
	b.fieldOverride(field).Highlight = &v
	return b
}

// AllowPartialMatch lets a required tokenized field match on any token.
func (b *SearchBuilder) AllowPartialMatch(field string, v bool) *SearchBuilder {
	b.fieldOverride(field).AllowPartialMatch = &v
	return b
}

// Join returns the documents named by field of the matches instead of
// the matches themselves.
func (b *SearchBuilder) Join(field string) *SearchBuilder {
	b.join = field
	return b
}

// Limit sets the maximum number of results.
func (b *SearchBuilder) Limit(n int) *SearchBuilder {
	b.settings.MaxResults = &n
	return b
}

// MinScore drops results scoring below s.
func (b *SearchBuilder) MinScore(s float64) *SearchBuilder {
	b.settings.MinScore = &s
	return b
}

// Boosts overrides the exact, prefix and fuzzy match boosts.
func (b *SearchBuilder) Boosts(exact, prefix, fuzzy float64) *SearchBuilder {
	b.settings.ExactMatchBoost = &exact
	b.settings.PrefixMatchBoost = &prefix
	b.settings.FuzzyMatchBoost = &fuzzy
	return b
}

// Fuzzy overrides the fuzzy edit distance and the unfuzzed prefix length.
func (b *SearchBuilder) Fuzzy(distance, prefixLength int) *SearchBuilder {
	b.settings.FuzzyEditDistance = &distance
	b.settings.FuzzyPrefixLength = &prefixLength
	return b
}

// request assembles the use case request in field declaration order.
func (b *SearchBuilder) request() (searchuc.Request, error) {
	for name := range b.values {
		if _, ok := b.client.registry.Lookup(name); !ok {
			return searchuc.Request{}, fmt.Errorf("%w: unknown field %q", ErrInvalidQuery, name)
		}
	}
	for name := range b.override {
		if _, ok := b.client.registry.Lookup(name); !ok {
			return searchuc.Request{}, fmt.Errorf("%w: unknown field %q", ErrInvalidQuery, name)
		}
	}

	req := searchuc.Request{Join: b.join, Settings: b.settings}
	format := result.FormatJSONFull
	req.Settings.Format = &format

	for _, f := range b.client.registry.Fields() {
		value, ok := b.values[f.Name()]
		if !ok && b.query != nil && f.QueryByDefault() {
			value, ok = *b.query, true
		}
		if !ok {
			continue
		}
		q := searchuc.FieldQuery{Field: f.Name(), Value: value}
		if o := b.override[f.Name()]; o != nil {
			q.Override = *o
		}
		req.Queries = append(req.Queries, q)
	}
	return req, nil
}

// Do runs the query and returns the ranked records.
func (b *SearchBuilder) Do(ctx context.Context) (records []Record, err error) {
	start := time.Now()
	defer func() {
		b.client.obs.observe("search", start, err, slog.Int("records", len(records)))
	}()

	req, err := b.request()
	if err != nil {
		return nil, err
	}
	if req.Settings.MaxResults != nil && *req.Settings.MaxResults == 0 {
		return nil, nil
	}
	env, err := b.client.searchSvc.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	records = make([]Record, 0, len(env.Records))
	for _, rec := range env.Records {
		records = append(records, recordFromResult(rec))
	}
	return records, nil
}

// Count returns the number of documents the query matches, ignoring Limit.
func (b *SearchBuilder) Count(ctx context.Context) (n uint64, err error) {
	start := time.Now()
	defer func() {
		b.client.obs.observe("count", start, err, slog.Uint64("count", n))
	}()

	req, err := b.request()
	if err != nil {
		return 0, err
	}
	zero := 0
	req.Settings.MaxResults = &zero

	env, err := b.client.searchSvc.Search(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	if len(env.Records) == 0 {
		return 0, nil
	}
	vals := env.Records[0].Get(result.FieldCount)
	if len(vals) == 0 {
		return 0, fmt.Errorf("count: missing %s field", result.FieldCount)
	}
	n, err = strconv.ParseUint(vals[0].Text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}
