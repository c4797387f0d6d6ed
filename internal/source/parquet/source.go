// Package parquet streams index bindings from parquet files.
package parquet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"github.com/dbpedia/lookup/internal/domain"
	"github.com/dbpedia/lookup/internal/domain/job"
)

const rowBuffer = 1000

// Source reads each binding from the files its query glob matches under
// the job's data path. A file carries one column named after the
// binding's document variable (the key) and one named after its field.
type Source struct {
	logger *zap.Logger
}

// New creates a parquet source.
func New(logger *zap.Logger) *Source {
	return &Source{logger: logger}
}

// Stream reads bindings in order, files sorted by name. With a key
// restriction, rows of other keys are skipped.
func (s *Source) Stream(ctx context.Context, j job.Job, fn func(job.Triple) error) error {
	var keys map[string]bool
	if restricted := j.Keys(); restricted != nil {
		keys = make(map[string]bool, len(restricted))
		for _, k := range restricted {
			keys[k] = true
		}
	}

	for _, b := range j.Bindings {
		files, err := filepath.Glob(filepath.Join(j.DataPath, b.Query))
		if err != nil {
			return fmt.Errorf("%w: glob %q: %v", domain.ErrInvalidJob, b.Query, err)
		}
		if len(files) == 0 {
			s.logger.Warn("Nothing to load", zap.String("field", b.FieldName), zap.String("glob", b.Query))
			continue
		}
		sort.Strings(files)
		s.logger.Info("Indexing field", zap.String("field", b.FieldName), zap.Int("files", len(files)))

		for _, path := range files {
			if err := s.readFile(ctx, path, b, keys, fn); err != nil {
				return fmt.Errorf("read %s: %w", filepath.Base(path), err)
			}
		}
	}
	return nil
}

// bindingColumns are the leaf indexes of the key and value columns.
type bindingColumns struct {
	key   int
	value int
}

func resolveColumns(pf *parquet.File, b job.Binding) (bindingColumns, error) {
	cols := bindingColumns{key: -1, value: -1}
	for i, path := range pf.Schema().Columns() {
		if len(path) == 0 {
			continue
		}
		switch path[0] {
		case b.DocumentVariable:
			cols.key = i
		case b.FieldName:
			cols.value = i
		}
	}
	if cols.key < 0 {
		return cols, fmt.Errorf("%w: column %q not found", domain.ErrInvalidJob, b.DocumentVariable)
	}
	if cols.value < 0 {
		return cols, fmt.Errorf("%w: column %q not found", domain.ErrInvalidJob, b.FieldName)
	}
	return cols, nil
}

func (s *Source) readFile(
	ctx context.Context, path string, b job.Binding, keys map[string]bool, fn func(job.Triple) error,
) error {
	h, err := openParquet(path)
	if err != nil {
		return err
	}
	defer h.Close()

	cols, err := resolveColumns(h.pf, b)
	if err != nil {
		return err
	}

	for _, rg := range h.pf.RowGroups() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := readRowGroup(rg, cols, b, keys, fn); err != nil {
			return err
		}
	}
	return nil
}

func readRowGroup(
	rg parquet.RowGroup, cols bindingColumns, b job.Binding, keys map[string]bool, fn func(job.Triple) error,
) error {
	rows := parquet.NewRowGroupReader(rg)
	buf := make([]parquet.Row, rowBuffer)

	for {
		n, readErr := rows.ReadRows(buf)
		for i := 0; i < n; i++ {
			t, ok := rowToTriple(buf[i], cols, b)
			if !ok || (keys != nil && !keys[t.Key]) {
				continue
			}
			if err := fn(t); err != nil {
				return err
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("read rows: %w", readErr)
		}
	}
}

// rowToTriple extracts the binding of one row. Rows without a key are
// dropped; a null value is unbound.
func rowToTriple(row parquet.Row, cols bindingColumns, b job.Binding) (job.Triple, bool) {
	t := job.Triple{Field: b.FieldName, Type: b.Type}
	for _, v := range row {
		switch v.Column() {
		case cols.key:
			if !v.IsNull() {
				t.Key = v.String()
			}
		case cols.value:
			if !v.IsNull() {
				s := v.String()
				t.Value = &s
			}
		}
	}
	return t, t.Key != ""
}

// parquetHandle wraps parquet.File + underlying os.File for proper cleanup.
type parquetHandle struct {
	pf   *parquet.File
	file *os.File
}

func (h *parquetHandle) Close() {
	_ = h.file.Close()
}

func openParquet(path string) (*parquetHandle, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	return &parquetHandle{pf: pf, file: f}, nil
}
