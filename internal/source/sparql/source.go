// Package sparql streams index bindings from a SPARQL 1.1 endpoint.
package sparql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dbpedia/lookup/internal/domain/job"
	"github.com/dbpedia/lookup/internal/version"
)

const (
	resultsMediaType = "application/sparql-results+json"
	defaultTimeout   = 30 * time.Minute
	channelBuffer    = 1024
	errorBodyLimit   = 512
)

// Config tunes the endpoint client.
type Config struct {
	// Timeout bounds a single binding query, including reading its results.
	Timeout time.Duration
	// Parallelism is the number of binding queries in flight. Triples of
	// concurrent queries interleave.
	Parallelism int
	HTTPClient  *http.Client
}

// Source runs each binding query of a job against the job's endpoint.
type Source struct {
	client      *http.Client
	timeout     time.Duration
	parallelism int
	logger      *zap.Logger
}

// New creates a SPARQL source.
func New(cfg Config, logger *zap.Logger) *Source {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &Source{
		client:      cfg.HTTPClient,
		timeout:     cfg.Timeout,
		parallelism: cfg.Parallelism,
		logger:      logger,
	}
}

// Stream queries every binding and hands each result row to fn, one at a
// time. The first failing query or fn error cancels the rest.
func (s *Source) Stream(ctx context.Context, j job.Job, fn func(job.Triple) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	triples := make(chan job.Triple, channelBuffer)

	var queryErr error
	go func() {
		defer close(triples)
		for _, b := range j.Bindings {
			g.Go(func() error {
				return s.query(gctx, j.SPARQLEndpoint, b, triples)
			})
		}
		queryErr = g.Wait()
	}()

	var fnErr error
	for t := range triples {
		if fnErr != nil {
			continue
		}
		if err := fn(t); err != nil {
			fnErr = err
			cancel()
		}
	}
	if fnErr != nil {
		return fnErr
	}
	return queryErr
}

type term struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (s *Source) query(ctx context.Context, endpoint string, b job.Binding, out chan<- job.Triple) error {
	s.logger.Info("Indexing field", zap.String("field", b.FieldName), zap.String("endpoint", endpoint))

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	form := url.Values{"query": {b.Query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request for %s: %w", b.FieldName, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", resultsMediaType)
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("query %s: %w", b.FieldName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return fmt.Errorf("query %s: endpoint returned %d: %s", b.FieldName, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	n := 0
	err = decodeBindings(resp.Body, func(row map[string]term) error {
		key, ok := row[b.DocumentVariable]
		if !ok || key.Value == "" {
			return nil
		}
		t := job.Triple{Key: key.Value, Field: b.FieldName, Type: b.Type}
		if v, ok := row[b.FieldName]; ok {
			value := v.Value
			t.Value = &value
		}
		select {
		case out <- t:
			n++
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		return fmt.Errorf("read results of %s: %w", b.FieldName, err)
	}
	s.logger.Info("Field results read", zap.String("field", b.FieldName), zap.Int("bindings", n))
	return nil
}

// decodeBindings walks a SPARQL JSON results document and decodes the
// rows of results.bindings one by one.
func decodeBindings(r io.Reader, fn func(map[string]term) error) error {
	dec := json.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if key, ok := tok.(string); !ok || key != "bindings" {
			continue
		}
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); !ok || d != '[' {
			continue
		}
		for dec.More() {
			var row map[string]term
			if err := dec.Decode(&row); err != nil {
				return err
			}
			if err := fn(row); err != nil {
				return err
			}
		}
		return nil
	}
}
