package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dbpedia/lookup/internal/domain"
	"github.com/dbpedia/lookup/internal/domain/job"
	"github.com/dbpedia/lookup/internal/logger"
)

// DefaultLogInterval is the number of bindings between progress lines.
const DefaultLogInterval = 100000

// Stats summarizes a job run.
type Stats struct {
	Bindings   int
	Written    int
	Duplicates int
	Nulls      int
	Skipped    int
	Failed     int
	Commits    int
	Duration   time.Duration
}

func (s *Stats) add(o Outcome) {
	s.Bindings++
	switch o {
	case OutcomeWritten:
		s.Written++
	case OutcomeDuplicate:
		s.Duplicates++
	case OutcomeNull:
		s.Nulls++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}

// State is the lifecycle state of an asynchronous job.
type State string

// Job states.
const (
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Status describes the most recent asynchronous job.
type Status struct {
	ID        string
	State     State
	Mode      job.Mode
	Clean     bool
	StartedAt time.Time
	Stats     Stats
	Err       error
}

// RunnerConfig tunes a Runner.
type RunnerConfig struct {
	LogInterval     int
	MaxBufferedDocs int
}

// Runner drives a job from its triple source through a controller session.
type Runner struct {
	controller *Controller
	sources    map[job.Mode]TripleSource
	cfg        RunnerConfig
	logger     *zap.Logger

	mu     sync.Mutex
	status *Status
}

// NewRunner creates a Runner. sources maps index modes to triple sources.
func NewRunner(c *Controller, sources map[job.Mode]TripleSource, cfg RunnerConfig, logger *zap.Logger) *Runner {
	if cfg.LogInterval <= 0 {
		cfg.LogInterval = DefaultLogInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{controller: c, sources: sources, cfg: cfg, logger: logger}
}

// Run executes j to completion.
func (r *Runner) Run(ctx context.Context, j job.Job) (Stats, error) {
	src, err := r.prepare(&j)
	if err != nil {
		return Stats{}, err
	}
	ctx = logger.WithJob(ctx, r.logger, uuid.New().String())
	sess, err := r.controller.Begin(ctx, j)
	if err != nil {
		return Stats{}, err
	}
	return r.drive(ctx, src, sess, j)
}

// Start executes j in the background and returns its id. It fails with
// ErrJobRunning while another job holds the writer.
func (r *Runner) Start(ctx context.Context, j job.Job) (string, error) {
	src, err := r.prepare(&j)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	ctx = logger.WithJob(ctx, r.logger, id)
	sess, err := r.controller.Begin(ctx, j)
	if err != nil {
		return "", err
	}

	st := &Status{
		ID:        id,
		State:     StateRunning,
		Mode:      j.Mode,
		Clean:     j.CleanIndex,
		StartedAt: time.Now(),
	}
	r.mu.Lock()
	r.status = st
	r.mu.Unlock()

	go func() {
		stats, err := r.drive(context.WithoutCancel(ctx), src, sess, j)
		r.mu.Lock()
		defer r.mu.Unlock()
		st.Stats = stats
		st.Err = err
		if err != nil {
			st.State = StateFailed
		} else {
			st.State = StateSucceeded
		}
	}()
	return st.ID, nil
}

// Status returns the most recent asynchronous job, if any.
func (r *Runner) Status() (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == nil {
		return Status{}, false
	}
	return *r.status, true
}

func (r *Runner) prepare(j *job.Job) (TripleSource, error) {
	if err := j.Validate(); err != nil {
		return nil, err
	}
	src, ok := r.sources[j.Mode]
	if !ok {
		return nil, fmt.Errorf("%w: no source for mode %s", domain.ErrInvalidJob, j.Mode)
	}
	return src, nil
}

func (r *Runner) drive(ctx context.Context, src TripleSource, sess *Session, j job.Job) (Stats, error) {
	start := time.Now()
	log := logger.FromContextOr(ctx, r.logger)
	var (
		stats Stats
		last  job.Triple
	)

	log.Info("Index job started",
		zap.String("mode", string(j.Mode)),
		zap.Bool("clean", j.CleanIndex),
		zap.Int("bindings", len(j.Bindings)),
		zap.Int("commit_interval", j.CommitInterval),
		zap.Strings("keys", j.Keys()),
	)

	err := src.Stream(ctx, j, func(t job.Triple) error {
		last = t
		stats.add(sess.Upsert(ctx, t))

		if stats.Bindings%r.cfg.LogInterval == 0 {
			log.Info("binding",
				zap.Int("n", stats.Bindings),
				zap.String("key", t.Key),
				zap.String("field", t.Field),
				zap.String("value", tripleValue(t)),
			)
		}
		if stats.Bindings%j.CommitInterval == 0 ||
			(r.cfg.MaxBufferedDocs > 0 && sess.Buffered() >= r.cfg.MaxBufferedDocs) {
			return sess.Commit(ctx)
		}
		return nil
	})
	if err != nil {
		sess.Abort()
		stats.Commits = sess.Commits()
		stats.Duration = time.Since(start)
		log.Error("Index job failed",
			zap.Int("bindings", stats.Bindings),
			zap.String("last_key", last.Key),
			zap.String("last_field", last.Field),
			zap.Error(err),
		)
		return stats, &domain.JobError{Key: last.Key, Field: last.Field, Value: tripleValue(last), Err: err}
	}

	err = sess.Finish(ctx)
	stats.Commits = sess.Commits()
	stats.Duration = time.Since(start)
	if err != nil {
		log.Error("Index job failed at finish",
			zap.Int("bindings", stats.Bindings),
			zap.Bool("promotion", errors.Is(err, domain.ErrPromotion)),
			zap.Error(err),
		)
		return stats, &domain.JobError{Key: last.Key, Field: last.Field, Value: tripleValue(last), Err: err}
	}

	log.Info("Index job finished",
		zap.Int("bindings", stats.Bindings),
		zap.Int("written", stats.Written),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Int("commits", stats.Commits),
		zap.Duration("took", stats.Duration),
	)
	return stats, nil
}

func tripleValue(t job.Triple) string {
	if t.Value == nil {
		return ""
	}
	return *t.Value
}
