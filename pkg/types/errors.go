package types

import "errors"

// Domain errors for type validation
var (
	ErrLevelMismatch = errors.New("section level must equal path length")
	ErrEmptyURL      = errors.New("result URL is required")
	ErrNegativeScore = errors.New("score must be non-negative")
	ErrEmptyContent  = errors.New("content cannot be empty")
)
