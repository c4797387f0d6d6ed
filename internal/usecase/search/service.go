package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dbpedia/lookup/internal/domain"
	"github.com/dbpedia/lookup/internal/domain/fieldspec"
	"github.com/dbpedia/lookup/internal/domain/search/result"
	"github.com/dbpedia/lookup/internal/domain/search/settings"
)

// FieldQuery is the query value of one field plus its request overrides.
type FieldQuery struct {
	Field    string
	Value    string
	Override fieldspec.Override
}

// Request is a parsed search request.
type Request struct {
	Queries  []FieldQuery
	Settings settings.Override
	Join     string
}

// Metrics are the collectors updated by the service. Nil fields are skipped.
type Metrics struct {
	Requests *prometheus.CounterVec // label "outcome"
	Hits     prometheus.Histogram
}

// Service answers search requests against the served snapshot.
type Service struct {
	index    SnapshotSource
	registry *fieldspec.Registry
	builder  *Builder
	ranker   *Ranker
	defaults settings.Defaults
	metrics  Metrics
}

// New creates a search service.
func New(
	index SnapshotSource,
	registry *fieldspec.Registry,
	builder *Builder,
	ranker *Ranker,
	defaults settings.Defaults,
	m Metrics,
) *Service {
	return &Service{
		index:    index,
		registry: registry,
		builder:  builder,
		ranker:   ranker,
		defaults: defaults,
		metrics:  m,
	}
}

// Search builds, runs and shapes one request. The whole request runs on
// one pinned snapshot. It fails with ErrNotReady when nothing has been
// published.
func (s *Service) Search(ctx context.Context, req Request) (result.Envelope, error) {
	env, err := s.search(ctx, req)
	s.observe(env, err)
	return env, err
}

func (s *Service) search(ctx context.Context, req Request) (result.Envelope, error) {
	sets := settings.New(s.defaults, req.Settings)

	fields := make([]fieldspec.FieldSpec, 0, len(req.Queries))
	values := make([]string, 0, len(req.Queries))
	for _, q := range req.Queries {
		f, ok := s.registry.Lookup(q.Field)
		if !ok {
			return result.Envelope{}, fmt.Errorf("%w: unknown field %q", domain.ErrInvalidQuery, q.Field)
		}
		fields = append(fields, q.Override.Apply(f))
		values = append(values, q.Value)
	}

	q, err := s.builder.Build(fields, values, sets)
	if err != nil {
		return result.Envelope{}, err
	}

	snap, err := s.index.Acquire()
	if err != nil {
		return result.Envelope{}, notReady(err)
	}
	defer snap.Release()

	join := strings.TrimSpace(req.Join)
	if sets.MaxResults() == 0 {
		n, err := s.ranker.Count(ctx, snap, q, join)
		if err != nil {
			return result.Envelope{}, err
		}
		return result.CountEnvelope(sets.Format(), n), nil
	}

	var highlight []string
	if sets.Format() == result.FormatJSON || sets.Format() == result.FormatJSONFull {
		for _, f := range fields {
			if f.Highlight() {
				highlight = append(highlight, f.Name())
			}
		}
	}

	docs, err := s.ranker.Rank(ctx, snap, q, sets, join, highlight)
	if err != nil {
		return result.Envelope{}, err
	}
	return Shape(docs, fields, sets.Format()), nil
}

// Generation returns the generation currently served, empty when none.
func (s *Service) Generation() string {
	snap, err := s.index.Acquire()
	if err != nil {
		return ""
	}
	defer snap.Release()
	return snap.Generation()
}

func (s *Service) observe(env result.Envelope, err error) {
	if s.metrics.Requests != nil {
		s.metrics.Requests.WithLabelValues(outcome(env, err)).Inc()
	}
	if err == nil && s.metrics.Hits != nil {
		s.metrics.Hits.Observe(float64(len(env.Records)))
	}
}

func outcome(env result.Envelope, err error) string {
	switch {
	case err == nil && len(env.Records) == 0:
		return "empty"
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotReady):
		return "not_ready"
	case errors.Is(err, domain.ErrInvalidQuery), errors.Is(err, domain.ErrFieldMismatch):
		return "invalid"
	default:
		return "error"
	}
}
