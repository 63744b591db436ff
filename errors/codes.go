package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Validation errors: the request was malformed, the operation was not attempted.
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the referenced id has no backing blob.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Authentication errors
const (
	// ErrCodeUnauthorized indicates credential verification failed.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
)

// Ingestion and persistence errors
const (
	// ErrCodeUpstreamFetch indicates a remote URL fetch failed or returned a
	// non-success status; no partial state was written.
	ErrCodeUpstreamFetch ErrorCode = "UPSTREAM_FETCH"
	// ErrCodePersistence indicates a disk write failed; the operation is not
	// committed.
	ErrCodePersistence ErrorCode = "PERSISTENCE"
	// ErrCodeMalformedState indicates the persisted metadata document could
	// not be parsed at startup.
	ErrCodeMalformedState ErrorCode = "MALFORMED_STATE"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)
