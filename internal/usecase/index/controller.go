package index

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dbpedia/lookup/internal/db"
	"github.com/dbpedia/lookup/internal/domain"
	"github.com/dbpedia/lookup/internal/domain/fieldspec"
	"github.com/dbpedia/lookup/internal/domain/job"
	"github.com/dbpedia/lookup/internal/logger"
)

// Metrics are the collectors updated by the controller. Nil fields are skipped.
type Metrics struct {
	Bindings       *prometheus.CounterVec // label "outcome"
	Commits        prometheus.Counter
	CommitDuration prometheus.Histogram
	Promotions     *prometheus.CounterVec // label "result"
	Jobs           *prometheus.CounterVec // labels "mode", "result"
	OnPublish      func(generation string)
}

// Controller owns the index writer. At most one session (job, clear) runs
// at a time.
type Controller struct {
	engine   Engine
	registry *fieldspec.Registry
	metrics  Metrics
	logger   *zap.Logger

	running  atomic.Bool
	sequence atomic.Uint64
}

// NewController creates a commit controller.
func NewController(engine Engine, registry *fieldspec.Registry, m Metrics, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{engine: engine, registry: registry, metrics: m, logger: logger}
}

// Sequence increases with every commit, clear and refresh that changed
// what searches see.
func (c *Controller) Sequence() uint64 {
	return c.sequence.Load()
}

// Running reports whether a session holds the writer.
func (c *Controller) Running() bool {
	return c.running.Load()
}

// Begin opens a session for j. A clean job writes into a staging
// generation that only Finish publishes.
func (c *Controller) Begin(ctx context.Context, j job.Job) (*Session, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, domain.ErrJobRunning
	}

	types := make(map[string]fieldspec.ValueType, len(j.Bindings))
	for _, b := range j.Bindings {
		types[b.FieldName] = c.registry.TypeOf(b.FieldName, b.Type)
	}

	w, err := c.engine.Begin(ctx, db.WriterOptions{Clean: j.CleanIndex, Types: types})
	if err != nil {
		c.running.Store(false)
		return nil, fmt.Errorf("begin index writer: %w", err)
	}

	log := logger.FromContextOr(ctx, c.logger)
	log.Info("Index session started",
		zap.Bool("clean", j.CleanIndex),
		zap.Bool("staging", w.Staging()),
		zap.String("location", w.Location()),
	)

	bindingTypes := make(map[string]fieldspec.ValueType, len(j.Bindings))
	for _, b := range j.Bindings {
		if b.Type != "" {
			bindingTypes[b.FieldName] = b.Type
		}
	}
	return &Session{
		c:      c,
		writer: w,
		acc:    NewAccumulator(w, c.registry, bindingTypes, log),
		mode:   j.Mode,
		log:    log,
	}, nil
}

// Clear publishes an empty index.
func (c *Controller) Clear(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return domain.ErrJobRunning
	}
	defer c.running.Store(false)

	if err := c.engine.Clear(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	c.published()
	c.logger.Info("Index cleared")
	return nil
}

// Refresh picks up a generation published by another process.
func (c *Controller) Refresh(ctx context.Context) (bool, error) {
	changed, err := c.engine.Refresh(ctx)
	if err != nil {
		return false, fmt.Errorf("refresh index: %w", err)
	}
	if changed {
		c.published()
	}
	return changed, nil
}

// published bumps the sequence and reports the served generation.
func (c *Controller) published() {
	c.sequence.Add(1)
	if c.metrics.OnPublish == nil {
		return
	}
	snap, err := c.engine.Acquire()
	if err != nil {
		return
	}
	gen := snap.Generation()
	snap.Release()
	c.metrics.OnPublish(gen)
}

// Session is one run over the writer.
type Session struct {
	c      *Controller
	writer db.Writer
	acc    *Accumulator
	mode   job.Mode
	log    *zap.Logger
	done   bool

	commits int
}

// Upsert applies one triple through the accumulator.
func (s *Session) Upsert(ctx context.Context, t job.Triple) Outcome {
	o := s.acc.Upsert(ctx, t)
	if s.c.metrics.Bindings != nil {
		s.c.metrics.Bindings.WithLabelValues(string(o)).Inc()
	}
	return o
}

// Buffered returns the number of documents held since the last commit.
func (s *Session) Buffered() int {
	return s.acc.Buffered()
}

// Commits returns the number of commits so far.
func (s *Session) Commits() int {
	return s.commits
}

// Staging reports whether the session writes into an unpublished generation.
func (s *Session) Staging() bool {
	return s.writer.Staging()
}

// Commit durably applies queued writes and clears the write-through cache.
// Outside staging, the writes are visible to searches started afterwards.
func (s *Session) Commit(ctx context.Context) error {
	start := time.Now()
	pending := s.writer.Pending()
	if err := s.writer.Flush(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.acc.Reset()
	s.commits++

	if s.c.metrics.Commits != nil {
		s.c.metrics.Commits.Inc()
	}
	if s.c.metrics.CommitDuration != nil {
		s.c.metrics.CommitDuration.Observe(time.Since(start).Seconds())
	}
	if !s.writer.Staging() {
		s.c.published()
	}
	s.log.Info("Committed",
		zap.Int("documents", pending),
		zap.Int("commit", s.commits),
		zap.Bool("staging", s.writer.Staging()),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// Finish commits what is left, promotes a staging generation and releases
// the writer. A failed promotion keeps the staging location.
func (s *Session) Finish(ctx context.Context) error {
	if s.done {
		return nil
	}
	defer s.release()

	if err := s.Commit(ctx); err != nil {
		s.discard()
		s.countJob("failed")
		return err
	}

	if s.writer.Staging() {
		loc := s.writer.Location()
		if err := s.writer.Promote(ctx); err != nil {
			s.log.Error("Promotion failed, staging kept",
				zap.String("staging", loc),
				zap.Error(err),
			)
			if cerr := s.writer.Close(); cerr != nil {
				s.log.Warn("Failed to close writer", zap.Error(cerr))
			}
			s.countPromotion("failed")
			s.countJob("failed")
			return fmt.Errorf("%w: %s: %w", domain.ErrPromotion, loc, err)
		}
		s.countPromotion("ok")
		s.c.published()
		s.log.Info("Promoted staging generation", zap.String("location", loc))
	}

	if err := s.writer.Close(); err != nil {
		s.log.Warn("Failed to close writer", zap.Error(err))
	}
	s.countJob("ok")
	return nil
}

// Abort ends a failed session. A staging generation is discarded and the
// served index stays untouched.
func (s *Session) Abort() {
	if s.done {
		return
	}
	defer s.release()
	s.discard()
	s.countJob("failed")
}

func (s *Session) discard() {
	if s.writer.Staging() {
		loc := s.writer.Location()
		if err := s.writer.Discard(); err != nil {
			s.log.Error("Failed to discard staging", zap.String("staging", loc), zap.Error(err))
		} else {
			s.log.Info("Discarded staging", zap.String("staging", loc))
		}
		s.countPromotion("discarded")
	}
	if err := s.writer.Close(); err != nil && !errors.Is(err, db.ErrWriterClosed) {
		s.log.Warn("Failed to close writer", zap.Error(err))
	}
}

func (s *Session) release() {
	s.done = true
	s.c.running.Store(false)
}

func (s *Session) countPromotion(result string) {
	if s.c.metrics.Promotions != nil {
		s.c.metrics.Promotions.WithLabelValues(result).Inc()
	}
}

func (s *Session) countJob(result string) {
	if s.c.metrics.Jobs != nil {
		s.c.metrics.Jobs.WithLabelValues(string(s.mode), result).Inc()
	}
}
