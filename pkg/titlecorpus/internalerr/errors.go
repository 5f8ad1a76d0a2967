package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrNoData        = errors.New("no data")
	ErrNothingToSave = errors.New("nothing to save")
)
