package bleve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dbpedia/lookup/internal/db"
	"github.com/dbpedia/lookup/internal/domain/fieldspec"
)

// Compile-time check: Store implements db.Engine.
var _ db.Engine = (*Store)(nil)

// openTimeout bounds waiting for the file lock of a generation held open
// by another process.
const openTimeout = "5s"

// Config holds the on-disk layout and schema of a Store.
type Config struct {
	// Path is the index root. It holds one directory per generation and
	// the manifest naming the published one.
	Path string
	// Types is the base schema used for every new generation.
	Types map[string]fieldspec.ValueType
	// RemoveRetired deletes a generation directory once it stops being
	// served and its last reader is gone.
	RemoveRetired bool
	Logger        *zap.Logger
}

// Store serves generations of a bleve index. The manifest is the single
// source of truth for which generation is published.
type Store struct {
	cfg      Config
	logger   *zap.Logger
	analyzer analysis.Analyzer

	mu      sync.RWMutex
	current *handle
}

// Open opens the published generation under cfg.Path, if any.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("index path is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}

	im, err := NewIndexMapping(cfg.Types)
	if err != nil {
		return nil, err
	}
	s := &Store{cfg: cfg, logger: cfg.Logger, analyzer: im.AnalyzerNamed(standard.Name)}

	m, err := loadManifest(cfg.Path)
	if err != nil {
		return nil, &db.Error{Op: db.OpManifest, Err: err}
	}
	if m == nil {
		s.logger.Info("No published index generation", zap.String("path", cfg.Path))
		return s, nil
	}

	h, err := s.openGeneration(m.Generation)
	if err != nil {
		return nil, err
	}
	s.current = h
	s.logger.Info("Opened index generation",
		zap.String("generation", h.gen),
		zap.Time("published_at", m.CreatedAt),
	)
	return s, nil
}

// Acquire pins the published generation.
func (s *Store) Acquire() (db.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, db.ErrIndexNotFound
	}
	return newSnapshot(s.current), nil
}

// Tokens analyzes text with the standard analyzer used by text fields.
func (s *Store) Tokens(text string) []string {
	stream := s.analyzer.Analyze([]byte(text))
	out := make([]string, 0, len(stream))
	for _, tok := range stream {
		out = append(out, string(tok.Term))
	}
	return out
}

// Begin opens a writer on the published generation, or on a new staging
// generation when opts.Clean is set or nothing is published yet.
func (s *Store) Begin(_ context.Context, opts db.WriterOptions) (db.Writer, error) {
	if !opts.Clean {
		s.mu.RLock()
		cur := s.current
		if cur != nil {
			cur.acquire()
		}
		s.mu.RUnlock()
		if cur != nil {
			return newWriter(s, cur, false, false), nil
		}
	}

	h, err := s.createGeneration(opts.Types)
	if err != nil {
		return nil, err
	}
	h.acquire()
	// A first build without a published generation publishes on its first
	// flush instead of waiting for promotion.
	return newWriter(s, h, opts.Clean, !opts.Clean), nil
}

// Clear publishes an empty generation.
func (s *Store) Clear(_ context.Context) error {
	h, err := s.createGeneration(nil)
	if err != nil {
		return err
	}
	if err := s.publish(h); err != nil {
		h.removeOnClose = true
		h.retire()
		return err
	}
	return nil
}

// Refresh swaps to the generation named by the manifest if it changed,
// e.g. after another process promoted a rebuild.
func (s *Store) Refresh(_ context.Context) (bool, error) {
	m, err := loadManifest(s.cfg.Path)
	if err != nil {
		return false, &db.Error{Op: db.OpManifest, Err: err}
	}
	if m == nil {
		return false, nil
	}

	s.mu.RLock()
	same := s.current != nil && s.current.gen == m.Generation
	s.mu.RUnlock()
	if same {
		return false, nil
	}

	h, err := s.openGeneration(m.Generation)
	if err != nil {
		return false, err
	}
	s.swap(h)
	return true, nil
}

// Close retires the served generation. Files are kept.
func (s *Store) Close() error {
	s.mu.Lock()
	cur := s.current
	s.current = nil
	s.mu.Unlock()
	if cur != nil {
		cur.retire()
	}
	return nil
}

func (s *Store) openGeneration(gen string) (*handle, error) {
	dir := filepath.Join(s.cfg.Path, gen)
	idx, err := bleve.OpenUsing(dir, map[string]interface{}{"bolt_timeout": openTimeout})
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: fmt.Errorf("%s: %w", dir, err)}
	}
	return s.newHandle(gen, dir, idx), nil
}

func (s *Store) createGeneration(extra map[string]fieldspec.ValueType) (*handle, error) {
	types := make(map[string]fieldspec.ValueType, len(s.cfg.Types)+len(extra))
	for k, v := range s.cfg.Types {
		types[k] = v
	}
	for k, v := range extra {
		types[k] = v
	}
	im, err := NewIndexMapping(types)
	if err != nil {
		return nil, &db.Error{Op: db.OpCreate, Err: err}
	}

	gen := "gen-" + uuid.New().String()
	dir := filepath.Join(s.cfg.Path, gen)
	idx, err := bleve.New(dir, im)
	if err != nil {
		return nil, &db.Error{Op: db.OpCreate, Err: fmt.Errorf("%s: %w", dir, err)}
	}
	s.logger.Info("Created index generation", zap.String("generation", gen))
	return s.newHandle(gen, dir, idx), nil
}

func (s *Store) newHandle(gen, dir string, idx bleve.Index) *handle {
	return &handle{
		gen:   gen,
		dir:   dir,
		index: idx,
		onClose: func(h *handle) {
			if !h.removeOnClose {
				return
			}
			if err := os.RemoveAll(h.dir); err != nil {
				s.logger.Error("Failed to remove index generation",
					zap.String("generation", h.gen), zap.Error(err))
				return
			}
			s.logger.Info("Removed index generation", zap.String("generation", h.gen))
		},
	}
}

// publish points the manifest at h and swaps it in. On error nothing changes.
func (s *Store) publish(h *handle) error {
	if err := saveManifest(s.cfg.Path, h.gen); err != nil {
		return &db.Error{Op: db.OpPublish, Err: err}
	}
	s.swap(h)
	return nil
}

// swap is the only writer of the current pointer.
func (s *Store) swap(h *handle) {
	s.mu.Lock()
	old := s.current
	s.current = h
	s.mu.Unlock()

	s.logger.Info("Published index generation", zap.String("generation", h.gen))
	if old != nil && old != h {
		old.removeOnClose = s.cfg.RemoveRetired
		old.retire()
	}
}
