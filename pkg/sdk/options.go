package lookup

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	indexPath string
	shared    bool

	fields       []Field
	defaults     Defaults
	boostFormula string

	joinBound       int
	boostCandidates int
	logInterval     int

	logger       *slog.Logger
	engineLogger *zap.Logger
	metricsReg   prometheus.Registerer
}

// WithIndexPath sets the index directory. Required.
func WithIndexPath(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexPath = path
	})
}

// WithSharedIndex keeps retired generations on disk because another
// process may still be serving them.
func WithSharedIndex() Option {
	return optionFunc(func(c *clientConfig) {
		c.shared = true
	})
}

// WithFields declares the searchable fields. At least one is required.
func WithFields(fields ...Field) Option {
	return optionFunc(func(c *clientConfig) {
		c.fields = append(c.fields, fields...)
	})
}

// WithDefaults replaces the default query settings.
func WithDefaults(d Defaults) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaults = d
	})
}

// WithBoostFormula rescales relevance scores by an expression over numeric
// fields, e.g. "1 + log(1 + refCount)".
func WithBoostFormula(expr string) Option {
	return optionFunc(func(c *clientConfig) {
		c.boostFormula = expr
	})
}

// WithJoinBound caps the candidates of each join pass. Default: 10000.
func WithJoinBound(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.joinBound = n
	})
}

// WithBoostCandidates sets how many hits a boost formula rescores. Default: 1000.
func WithBoostCandidates(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.boostCandidates = n
	})
}

// WithLogInterval sets the number of bindings between progress lines of
// index jobs. Default: 100000.
func WithLogInterval(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.logInterval = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithEngineLogger receives the engine's own logs: index job progress,
// commits and promotions. Default: discarded.
func WithEngineLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.engineLogger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
