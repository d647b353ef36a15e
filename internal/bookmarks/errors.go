package bookmarks

import "errors"

// Sentinel errors shared across the ingestion pipeline. Handlers map these to
// HTTP status codes; anything else is an internal failure.
var (
	// ErrInvalid marks a malformed request.
	ErrInvalid = errors.New("invalid request")
	// ErrUnauthorized marks a request with no usable identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden marks an authenticated caller without permission.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict marks a duplicate URL within the target category.
	ErrConflict = errors.New("bookmark already exists in this category")
	// ErrNotFound marks a missing row.
	ErrNotFound = errors.New("not found")
)
