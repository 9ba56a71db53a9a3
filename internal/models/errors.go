package models

import "errors"

// Domain errors represent request-level failures surfaced to callers.
// Provider and extraction failures are recovered locally and never
// become one of these.
var (
	// ErrInvalidRequest indicates missing files, an empty query, or a
	// malformed form.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound indicates an unknown upload_id or document_id. An
	// expired stage is reported the same way.
	ErrNotFound = errors.New("not found")

	// ErrPayloadTooLarge indicates an upload exceeding a size ceiling.
	ErrPayloadTooLarge = errors.New("payload too large")
)
