package lookup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dbpedia/lookup/internal/boost"
	bleveidx "github.com/dbpedia/lookup/internal/db/bleve"
	"github.com/dbpedia/lookup/internal/domain/fieldspec"
	"github.com/dbpedia/lookup/internal/domain/job"
	"github.com/dbpedia/lookup/internal/domain/search/result"
	parquetsrc "github.com/dbpedia/lookup/internal/source/parquet"
	sparqlsrc "github.com/dbpedia/lookup/internal/source/sparql"
	healthuc "github.com/dbpedia/lookup/internal/usecase/health"
	indexuc "github.com/dbpedia/lookup/internal/usecase/index"
	searchuc "github.com/dbpedia/lookup/internal/usecase/search"
)

// Internal interfaces, replaced by mocks in tests.
type searchUseCase interface {
	Search(ctx context.Context, req searchuc.Request) (result.Envelope, error)
	Generation() string
}

type indexUseCase interface {
	Run(ctx context.Context, j job.Job) (indexuc.Stats, error)
}

type adminUseCase interface {
	Clear(ctx context.Context) error
	Refresh(ctx context.Context) (bool, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the lookup SDK entry point.
type Client struct {
	closeFn   func() error
	registry  *fieldspec.Registry
	searchSvc searchUseCase
	indexSvc  indexUseCase
	adminSvc  adminUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New opens the index directory and wires a Client.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{defaults: DefaultSettings()}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.indexPath == "" {
		return nil, errors.New("lookup: index path required (use WithIndexPath)")
	}
	if len(cfg.fields) == 0 {
		return nil, errors.New("lookup: at least one field required (use WithFields)")
	}

	specs := make([]fieldspec.FieldSpec, 0, len(cfg.fields))
	for _, f := range cfg.fields {
		spec, err := f.toDomain()
		if err != nil {
			return nil, fmt.Errorf("lookup: field %q: %w", f.Name, err)
		}
		specs = append(specs, spec)
	}
	registry, err := fieldspec.NewRegistry(specs)
	if err != nil {
		return nil, fmt.Errorf("lookup: %w", err)
	}

	var adjuster searchuc.ScoreAdjuster
	if cfg.boostFormula != "" {
		formula, err := boost.Compile(cfg.boostFormula)
		if err != nil {
			return nil, fmt.Errorf("lookup: %w", err)
		}
		adjuster = formula
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	logger := cfg.engineLogger
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := bleveidx.Open(bleveidx.Config{
		Path:          cfg.indexPath,
		Types:         registry.Types(),
		RemoveRetired: !cfg.shared,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("lookup: open index: %w", err)
	}

	controller := indexuc.NewController(store, registry, indexuc.Metrics{}, logger)
	runner := indexuc.NewRunner(controller, map[job.Mode]indexuc.TripleSource{
		job.ModeSPARQL:  sparqlsrc.New(sparqlsrc.Config{}, logger),
		job.ModeParquet: parquetsrc.New(logger),
	}, indexuc.RunnerConfig{LogInterval: cfg.logInterval}, logger)

	searchSvc := searchuc.New(
		store,
		registry,
		searchuc.NewBuilder(store),
		searchuc.NewRanker(adjuster, searchuc.RankerConfig{
			JoinBound:       cfg.joinBound,
			BoostCandidates: cfg.boostCandidates,
		}),
		cfg.defaults.toDomain(),
		searchuc.Metrics{},
	)

	return &Client{
		closeFn:   store.Close,
		registry:  registry,
		searchSvc: searchSvc,
		indexSvc:  runner,
		adminSvc:  controller,
		healthSvc: healthuc.New(store, nil),
		obs:       obs,
	}, nil
}

// Close releases the index.
func (c *Client) Close() error {
	if c.closeFn == nil {
		return nil
	}
	return c.closeFn()
}

// Generation returns the index generation searches currently read,
// empty before the first commit.
func (c *Client) Generation() string {
	return c.searchSvc.Generation()
}

// Clear publishes an empty index.
func (c *Client) Clear(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("clear", start, err) }()

	if err = c.adminSvc.Clear(ctx); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

// Refresh picks up a generation published by another process.
// It reports whether the served generation changed.
func (c *Client) Refresh(ctx context.Context) (changed bool, err error) {
	start := time.Now()
	defer func() { c.obs.observe("refresh", start, err) }()

	changed, err = c.adminSvc.Refresh(ctx)
	if err != nil {
		return false, fmt.Errorf("refresh: %w", err)
	}
	return changed, nil
}
