package models

import "errors"

// Failure taxonomy for the estimation path. Callers match with errors.Is.
var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrParseMismatch     = errors.New("source parse mismatch")
	ErrEmptyComposition  = errors.New("no holdings extracted")
	ErrNoQuotes          = errors.New("no quotes resolved")
	ErrInvalidFeedback   = errors.New("invalid feedback")

	ErrInsufficientHistory = errors.New("not enough history points")
)
