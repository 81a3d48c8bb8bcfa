// Package apperr holds the sentinel errors shared across transports.
package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict marks a ledger record id already held by another file.
	ErrConflict = errors.New("conflict")
)
