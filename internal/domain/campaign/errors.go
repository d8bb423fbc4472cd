package campaign

import "errors"

var (
	ErrNotFound     = errors.New("campaign not found")
	ErrInvalidInput = errors.New("invalid campaign input")
	ErrInternal     = errors.New("internal error")
)
