package claim

import "errors"

var (
	ErrNotFound         = errors.New("claim not found")
	ErrDuplicateClaim   = errors.New("an active claim for this campaign already exists")
	ErrAlreadyProcessed = errors.New("claim already processed")
	ErrInvalidInput     = errors.New("invalid claim input")
	ErrInternal         = errors.New("internal error")
)
