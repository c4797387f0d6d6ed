package bleve

import (
	"context"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"go.uber.org/zap"

	"github.com/dbpedia/lookup/internal/db"
	"github.com/dbpedia/lookup/internal/domain/document"
	"github.com/dbpedia/lookup/internal/domain/fieldspec"
)

// Compile-time check: writer implements db.Writer.
var _ db.Writer = (*writer)(nil)

type writer struct {
	store *Store
	h     *handle
	batch *bleve.Batch

	staging        bool
	publishOnFlush bool
	promoteFailed  bool
	closed         bool
}

func newWriter(s *Store, h *handle, staging, publishOnFlush bool) *writer {
	return &writer{
		store:          s,
		h:              h,
		batch:          h.index.NewBatch(),
		staging:        staging,
		publishOnFlush: publishOnFlush,
	}
}

func (w *writer) Staging() bool    { return w.staging }
func (w *writer) Location() string { return w.h.dir }
func (w *writer) Pending() int     { return w.batch.Size() }

func (w *writer) Upsert(doc *document.Document) error {
	if w.closed {
		return db.ErrWriterClosed
	}
	fields, err := encode(doc)
	if err != nil {
		return &db.Error{Op: db.OpBatch, Err: err}
	}
	if err := w.batch.Index(doc.ID(), fields); err != nil {
		return &db.Error{Op: db.OpBatch, Err: err}
	}
	return nil
}

func (w *writer) Fetch(ctx context.Context, id string) (map[string][]string, bool, error) {
	if w.closed {
		return nil, false, db.ErrWriterClosed
	}
	sr := bleve.NewSearchRequestOptions(bleve.NewDocIDQuery([]string{id}), 1, 0, false)
	sr.Fields = []string{"*"}
	res, err := w.h.index.SearchInContext(ctx, sr)
	if err != nil {
		return nil, false, &db.Error{Op: db.OpFetch, Err: err}
	}
	if len(res.Hits) == 0 {
		return nil, false, nil
	}
	fields := storedValues(res.Hits[0].Fields)
	delete(fields, fieldspec.IDField)
	return fields, true, nil
}

func (w *writer) Flush(_ context.Context) error {
	if w.closed {
		return db.ErrWriterClosed
	}
	if w.batch.Size() > 0 {
		w.h.gate.Lock()
		err := w.h.index.Batch(w.batch)
		w.h.gate.Unlock()
		if err != nil {
			return &db.Error{Op: db.OpBatch, Err: err}
		}
		w.batch.Reset()
	}
	if w.publishOnFlush {
		if err := w.store.publish(w.h); err != nil {
			return err
		}
		w.publishOnFlush = false
	}
	return nil
}

func (w *writer) Promote(ctx context.Context) error {
	if !w.staging {
		return nil
	}
	if err := w.Flush(ctx); err != nil {
		return err
	}
	if err := w.store.publish(w.h); err != nil {
		w.promoteFailed = true
		return err
	}
	w.staging = false
	return nil
}

func (w *writer) Discard() error {
	if !w.staging || w.closed {
		return nil
	}
	w.closed = true
	w.h.removeOnClose = true
	w.h.retire()
	w.h.release()
	w.store.logger.Info("Discarded staging generation", zap.String("generation", w.h.gen))
	return nil
}

// Close releases the writer. An unpromoted staging generation is discarded
// unless its promotion failed, in which case its files are kept.
func (w *writer) Close() error {
	if w.closed {
		return nil
	}
	if w.staging && !w.promoteFailed {
		return w.Discard()
	}
	switch {
	case w.staging:
		w.h.retire()
	case w.publishOnFlush:
		// Never published: nothing else can reach this generation.
		w.h.removeOnClose = true
		w.h.retire()
	}
	w.closed = true
	w.batch.Reset()
	w.h.release()
	return nil
}

// encode maps a document onto the bleve document model. A numeric value is
// indexed as a number for range queries and stored as its canonical
// decimal text under a companion field.
func encode(doc *document.Document) (map[string]interface{}, error) {
	out := make(map[string]interface{}, doc.Len()+1)
	out[fieldspec.IDField] = doc.ID()
	for _, f := range doc.Fields() {
		vals := doc.Values(f)
		if len(vals) == 0 {
			continue
		}
		if doc.Type(f) == fieldspec.Numeric {
			n, err := document.ParseNumeric(vals[0])
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f, err)
			}
			out[f] = float64(n)
			out[f+numericTextSuffix] = strconv.FormatInt(n, 10)
			continue
		}
		if len(vals) == 1 {
			out[f] = vals[0]
		} else {
			out[f] = vals
		}
	}
	return out, nil
}
