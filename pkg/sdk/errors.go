package lookup

import "github.com/dbpedia/lookup/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotReady      = domain.ErrNotReady
	ErrInvalidSchema = domain.ErrInvalidSchema
	ErrInvalidQuery  = domain.ErrInvalidQuery
	ErrInvalidJob    = domain.ErrInvalidJob
	ErrJobRunning    = domain.ErrJobRunning
	ErrPromotion     = domain.ErrPromotion
)
