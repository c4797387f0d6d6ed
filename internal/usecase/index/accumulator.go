package index

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dbpedia/lookup/internal/db"
	"github.com/dbpedia/lookup/internal/domain/document"
	"github.com/dbpedia/lookup/internal/domain/fieldspec"
	"github.com/dbpedia/lookup/internal/domain/job"
)

// Outcome classifies what an upsert did.
type Outcome string

// Upsert outcomes.
const (
	OutcomeWritten   Outcome = "written"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeNull      Outcome = "null"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Accumulator maps triples onto documents and queues them on a writer.
// Documents touched since the last commit live in a write-through cache;
// older ones are re-read from the writer's target.
type Accumulator struct {
	writer   db.Writer
	registry *fieldspec.Registry
	types    map[string]fieldspec.ValueType
	logger   *zap.Logger

	cache    sync.Map // document id -> *document.Document
	buffered atomic.Int64
}

// NewAccumulator creates an accumulator writing through w. types holds the
// per-binding value types of the running job; they win over the registry.
func NewAccumulator(
	w db.Writer,
	registry *fieldspec.Registry,
	types map[string]fieldspec.ValueType,
	logger *zap.Logger,
) *Accumulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accumulator{writer: w, registry: registry, types: types, logger: logger}
}

// Upsert applies one triple. Failures are per-record: they are logged and
// reported through the outcome, never returned.
func (a *Accumulator) Upsert(ctx context.Context, t job.Triple) Outcome {
	if t.Value == nil {
		return OutcomeNull
	}

	vt := a.typeOf(t.Field, t.Type)
	value := *t.Value
	if vt == fieldspec.Numeric {
		n, err := document.ParseNumeric(value)
		if err != nil {
			a.logger.Warn("Skipping numeric value",
				zap.String("key", t.Key),
				zap.String("field", t.Field),
				zap.String("value", value),
				zap.Error(err),
			)
			return OutcomeSkipped
		}
		value = strconv.FormatInt(n, 10)
	}

	doc, err := a.find(ctx, t.Key)
	if err != nil {
		a.logger.Error("Failed to load document",
			zap.String("key", t.Key),
			zap.Error(err),
		)
		return OutcomeFailed
	}

	if !doc.Append(t.Field, vt, value) {
		return OutcomeDuplicate
	}

	if err := a.writer.Upsert(doc); err != nil {
		a.logger.Error("Failed to queue document",
			zap.String("key", t.Key),
			zap.String("field", t.Field),
			zap.Error(err),
		)
		return OutcomeFailed
	}
	return OutcomeWritten
}

// Buffered returns the number of documents held since the last Reset.
func (a *Accumulator) Buffered() int {
	return int(a.buffered.Load())
}

// Reset empties the write-through cache. Called after every commit.
func (a *Accumulator) Reset() {
	a.cache.Clear()
	a.buffered.Store(0)
}

func (a *Accumulator) typeOf(field string, explicit fieldspec.ValueType) fieldspec.ValueType {
	if explicit == "" {
		explicit = a.types[field]
	}
	return a.registry.TypeOf(field, explicit)
}

// find looks up id in the cache, then in the committed index, and creates
// a new document as a last resort.
func (a *Accumulator) find(ctx context.Context, id string) (*document.Document, error) {
	if v, ok := a.cache.Load(id); ok {
		return v.(*document.Document), nil
	}

	doc := document.New(id)
	fields, found, err := a.writer.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if found {
		a.restore(doc, fields)
	}

	actual, loaded := a.cache.LoadOrStore(id, doc)
	if !loaded {
		a.buffered.Add(1)
	}
	return actual.(*document.Document), nil
}

// restore re-adds fetched values with their declared types, since stored
// values come back from the engine as plain strings.
func (a *Accumulator) restore(doc *document.Document, fields map[string][]string) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		vt := a.typeOf(name, "")
		for _, v := range fields[name] {
			if vt == fieldspec.Numeric {
				n, err := document.ParseNumeric(v)
				if err != nil {
					continue
				}
				v = strconv.FormatInt(n, 10)
			}
			doc.Append(name, vt, v)
		}
	}
}
