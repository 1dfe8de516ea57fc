// Package apperr defines the fixed error taxonomy shared by every fallible
// operation. Callers match with errors.Is; detail travels in the wrapping
// message (e.g. fmt.Errorf("%w: created-at", apperr.ErrMissingField)).
package apperr

import "errors"

var (
	// ErrNotFound means the document path does not exist.
	ErrNotFound = errors.New("not found")
	// ErrParse means the metadata block is missing or syntactically malformed.
	ErrParse = errors.New("parse failure")
	// ErrMissingField means a required metadata field is absent.
	ErrMissingField = errors.New("missing field")
	// ErrInvalidField means a field is present but semantically invalid.
	ErrInvalidField = errors.New("invalid field")
	// ErrUnresolvedReference means a single-reference resolution found no file.
	ErrUnresolvedReference = errors.New("unresolved reference")
	// ErrValidation means a business rule was violated.
	ErrValidation = errors.New("validation failure")
	// ErrWriteFailure means an I/O failure occurred while persisting a document.
	ErrWriteFailure = errors.New("write failure")
	// ErrConflict means an optimistic-concurrency checksum mismatch.
	ErrConflict = errors.New("conflict")
)
