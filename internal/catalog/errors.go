package catalog

import "errors"

// Error taxonomy surfaced to the HTTP layer. Handlers map these 1:1 to
// status codes; nothing here is retried.
var (
	// ErrNotFound means a referenced artifact or submission does not exist.
	ErrNotFound = errors.New("catalog: not found")
	// ErrInvalidArgument means a required field is missing or malformed.
	ErrInvalidArgument = errors.New("catalog: invalid argument")
)
