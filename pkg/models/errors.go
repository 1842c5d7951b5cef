package models

import "errors"

// Store and handler level sentinel errors. Wrap with %w; utils.WriteDomainError maps them.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)
