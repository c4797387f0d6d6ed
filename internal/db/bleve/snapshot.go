package bleve

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/highlight/highlighter/html"

	"github.com/dbpedia/lookup/internal/db"
	"github.com/dbpedia/lookup/internal/domain/search/querytree"
)

// handle is a reference-counted open generation. It closes once it has been
// retired from serving and the last reference is released.
type handle struct {
	gen   string
	dir   string
	index bleve.Index

	// gate is read-held by every pinned snapshot and write-held while a
	// batch is applied, so a snapshot never observes a commit.
	gate sync.RWMutex

	mu      sync.Mutex
	refs    int
	retired bool
	closed  bool

	removeOnClose bool
	onClose       func(h *handle)
}

func (h *handle) acquire() {
	h.mu.Lock()
	h.refs++
	h.mu.Unlock()
}

func (h *handle) release() {
	h.mu.Lock()
	h.refs--
	done := h.refs <= 0 && h.retired && !h.closed
	if done {
		h.closed = true
	}
	h.mu.Unlock()
	if done {
		h.close()
	}
}

func (h *handle) retire() {
	h.mu.Lock()
	h.retired = true
	done := h.refs <= 0 && !h.closed
	if done {
		h.closed = true
	}
	h.mu.Unlock()
	if done {
		h.close()
	}
}

func (h *handle) close() {
	_ = h.index.Close()
	if h.onClose != nil {
		h.onClose(h)
	}
}

// Compile-time check: snapshot implements db.Snapshot.
var _ db.Snapshot = (*snapshot)(nil)

// snapshot pins a handle for the duration of a request. Commits to the
// handle wait until it is released.
type snapshot struct {
	h    *handle
	once sync.Once
}

func newSnapshot(h *handle) *snapshot {
	h.acquire()
	h.gate.RLock()
	return &snapshot{h: h}
}

func (s *snapshot) Generation() string { return s.h.gen }

func (s *snapshot) Release() {
	s.once.Do(func() {
		s.h.gate.RUnlock()
		s.h.release()
	})
}

func (s *snapshot) Search(ctx context.Context, req *db.SearchRequest) (*db.SearchResult, error) {
	return search(ctx, s.h.index, req)
}

func (s *snapshot) Count(ctx context.Context, q querytree.Node) (uint64, error) {
	bq, err := translate(q)
	if err != nil {
		return 0, &db.Error{Op: db.OpSearch, Err: err}
	}
	res, err := s.h.index.SearchInContext(ctx, bleve.NewSearchRequestOptions(bq, 0, 0, false))
	if err != nil {
		return 0, &db.Error{Op: db.OpSearch, Err: err}
	}
	return res.Total, nil
}

func search(ctx context.Context, index bleve.Index, req *db.SearchRequest) (*db.SearchResult, error) {
	bq, err := translate(req.Query)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	sr := bleve.NewSearchRequestOptions(bq, req.Size, 0, false)
	if req.Fields == nil {
		sr.Fields = []string{"*"}
	} else {
		sr.Fields = make([]string, 0, 2*len(req.Fields))
		for _, f := range req.Fields {
			sr.Fields = append(sr.Fields, f, f+numericTextSuffix)
		}
	}
	if len(req.Highlight) > 0 {
		sr.Highlight = bleve.NewHighlightWithStyle(html.Name)
		sr.Highlight.Fields = req.Highlight
	}

	res, err := index.SearchInContext(ctx, sr)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	out := &db.SearchResult{Total: res.Total, Hits: make([]db.SearchHit, 0, len(res.Hits))}
	for _, hit := range res.Hits {
		h := db.SearchHit{
			ID:     hit.ID,
			Score:  hit.Score,
			Fields: storedValues(hit.Fields),
		}
		if len(hit.Fragments) > 0 {
			h.Fragments = make(map[string][]string, len(hit.Fragments))
			for k, v := range hit.Fragments {
				h.Fragments[k] = v
			}
		}
		out.Hits = append(out.Hits, h)
	}
	return out, nil
}

// storedValues flattens bleve's stored field values into string lists.
// A numeric field is read from its decimal text companion, which keeps
// integers beyond float64 precision exact.
func storedValues(fields map[string]interface{}) map[string][]string {
	out := make(map[string][]string, len(fields))
	for name, v := range fields {
		if strings.HasSuffix(name, numericTextSuffix) {
			continue
		}
		out[name] = flatten(v)
	}
	for name, v := range fields {
		if base, ok := strings.CutSuffix(name, numericTextSuffix); ok {
			out[base] = flatten(v)
		}
	}
	return out
}

func flatten(v interface{}) []string {
	vv, ok := v.([]interface{})
	if !ok {
		return []string{stringify(v)}
	}
	vals := make([]string, 0, len(vv))
	for _, x := range vv {
		vals = append(vals, stringify(x))
	}
	return vals
}

func stringify(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
