package db

import "errors"

// Sentinel errors for storage operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrWriterClosed  = errors.New("db: writer closed")
)

// Op constants name storage operations for error context.
const (
	OpGet      = "GET"
	OpSet      = "SET"
	OpOpen     = "OPEN"
	OpCreate   = "CREATE"
	OpBatch    = "BATCH"
	OpSearch   = "SEARCH"
	OpFetch    = "FETCH"
	OpPublish  = "PUBLISH"
	OpDiscard  = "DISCARD"
	OpManifest = "MANIFEST"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
