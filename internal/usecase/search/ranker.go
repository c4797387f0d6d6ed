package search

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/dbpedia/lookup/internal/db"
	"github.com/dbpedia/lookup/internal/domain"
	"github.com/dbpedia/lookup/internal/domain/document"
	"github.com/dbpedia/lookup/internal/domain/fieldspec"
	"github.com/dbpedia/lookup/internal/domain/search/querytree"
	"github.com/dbpedia/lookup/internal/domain/search/result"
	"github.com/dbpedia/lookup/internal/domain/search/settings"
)

// Ranker defaults.
const (
	DefaultJoinBound       = 10000
	DefaultBoostCandidates = 1000
)

// RankerConfig tunes a Ranker.
type RankerConfig struct {
	// JoinBound caps both passes of a join.
	JoinBound int
	// BoostCandidates is the number of hits rescored when a score
	// adjuster is set, so that adjusted scores can reorder them.
	BoostCandidates int
}

// Ranker runs a query tree against a snapshot and orders the hits.
type Ranker struct {
	adjuster ScoreAdjuster
	cfg      RankerConfig
}

// NewRanker creates a Ranker. adjuster may be nil.
func NewRanker(adjuster ScoreAdjuster, cfg RankerConfig) *Ranker {
	if cfg.JoinBound <= 0 {
		cfg.JoinBound = DefaultJoinBound
	}
	if cfg.BoostCandidates <= 0 {
		cfg.BoostCandidates = DefaultBoostCandidates
	}
	return &Ranker{adjuster: adjuster, cfg: cfg}
}

// Count returns the number of documents q matches, through join if set.
func (r *Ranker) Count(ctx context.Context, snap db.Snapshot, q querytree.Node, join string) (uint64, error) {
	if join == "" {
		n, err := snap.Count(ctx, q)
		if err != nil {
			return 0, fmt.Errorf("count: %w", err)
		}
		return n, nil
	}

	keys, err := r.joinKeys(ctx, snap, q)
	if err != nil {
		return 0, err
	}
	n, err := snap.Count(ctx, joinQuery(join, keys))
	if err != nil {
		return 0, fmt.Errorf("count join: %w", err)
	}
	return n, nil
}

// Rank returns documents ordered by descending final score, without
// documents scoring below the minimum, at most s.MaxResults() of them.
func (r *Ranker) Rank(
	ctx context.Context, snap db.Snapshot, q querytree.Node,
	s settings.Settings, join string, highlight []string,
) ([]result.ScoredDocument, error) {
	var (
		docs []result.ScoredDocument
		err  error
	)
	if join == "" {
		docs, err = r.direct(ctx, snap, q, s.MaxResults(), highlight)
	} else {
		docs, err = r.joined(ctx, snap, q, join, highlight)
	}
	if err != nil {
		return nil, err
	}

	result.SortByScore(docs)
	kept := docs[:0]
	for _, d := range docs {
		if d.Score() < s.MinScore() {
			continue
		}
		kept = append(kept, d)
	}
	if len(kept) > s.MaxResults() {
		kept = kept[:s.MaxResults()]
	}
	return kept, nil
}

func (r *Ranker) direct(
	ctx context.Context, snap db.Snapshot, q querytree.Node, limit int, highlight []string,
) ([]result.ScoredDocument, error) {
	size := limit
	if r.adjuster != nil && size < r.cfg.BoostCandidates {
		size = r.cfg.BoostCandidates
	}
	res, err := snap.Search(ctx, &db.SearchRequest{Query: q, Size: size, Highlight: highlight})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	docs := make([]result.ScoredDocument, 0, len(res.Hits))
	for _, h := range res.Hits {
		docs = append(docs, result.NewScored(h.ID, r.adjust(h.Score, h.Fields), h.Fields, h.Fragments))
	}
	return docs, nil
}

// joined scores documents by the first-pass scores of the keys they hold
// in the join field. A key held twice counts twice.
func (r *Ranker) joined(
	ctx context.Context, snap db.Snapshot, q querytree.Node, join string, highlight []string,
) ([]result.ScoredDocument, error) {
	scores, err := r.joinScores(ctx, snap, q)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	res, err := snap.Search(ctx, &db.SearchRequest{
		Query:     joinQuery(join, keys),
		Size:      r.cfg.JoinBound,
		Highlight: highlight,
	})
	if err != nil {
		return nil, fmt.Errorf("search join: %w", err)
	}

	docs := make([]result.ScoredDocument, 0, len(res.Hits))
	for _, h := range res.Hits {
		score, matched := aggregateJoin(h.Fields[join], scores)
		if !matched {
			continue
		}
		docs = append(docs, result.NewScored(h.ID, score, h.Fields, h.Fragments))
	}
	return docs, nil
}

// joinScores runs the first pass and maps document ids to adjusted scores.
func (r *Ranker) joinScores(ctx context.Context, snap db.Snapshot, q querytree.Node) (map[string]float64, error) {
	req := &db.SearchRequest{Query: q, Size: r.cfg.JoinBound, Fields: []string{fieldspec.IDField}}
	if r.adjuster != nil {
		req.Fields = append(req.Fields, r.adjuster.Variables()...)
	}
	res, err := snap.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search join keys: %w", err)
	}
	scores := make(map[string]float64, len(res.Hits))
	for _, h := range res.Hits {
		scores[h.ID] = r.adjust(h.Score, h.Fields)
	}
	return scores, nil
}

func (r *Ranker) joinKeys(ctx context.Context, snap db.Snapshot, q querytree.Node) ([]string, error) {
	res, err := snap.Search(ctx, &db.SearchRequest{Query: q, Size: r.cfg.JoinBound, Fields: []string{}})
	if err != nil {
		return nil, fmt.Errorf("search join keys: %w", err)
	}
	keys := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		keys = append(keys, h.ID)
	}
	return keys, nil
}

func joinQuery(field string, keys []string) querytree.Node {
	return querytree.TermsIn{Field: field, Values: keys, Boost: 1}
}

// aggregateJoin sums the scores of every held key. matched is false when
// no held key scored in the first pass.
func aggregateJoin(values []string, scores map[string]float64) (float64, bool) {
	var (
		sum     float64
		matched bool
	)
	for _, v := range values {
		if s, ok := scores[v]; ok {
			sum += s
			matched = true
		}
	}
	return sum, matched
}

// adjust applies the score adjuster. Missing or non-numeric variables
// leave the score unchanged.
func (r *Ranker) adjust(score float64, fields map[string][]string) float64 {
	if r.adjuster == nil {
		return score
	}
	vars := r.adjuster.Variables()
	values := make(map[string]float64, len(vars))
	for _, v := range vars {
		vals := fields[v]
		if len(vals) == 0 {
			return score
		}
		n, err := document.ParseNumeric(vals[0])
		if err != nil {
			return score
		}
		values[v] = float64(n)
	}
	m, ok := r.adjuster.Multiplier(values)
	if !ok || math.IsNaN(m) || math.IsInf(m, 0) {
		return score
	}
	return score * m
}

// notReady maps a missing snapshot to the not-ready error.
func notReady(err error) error {
	if errors.Is(err, db.ErrIndexNotFound) {
		return domain.ErrNotReady
	}
	return fmt.Errorf("acquire snapshot: %w", err)
}
