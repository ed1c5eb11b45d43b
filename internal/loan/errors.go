package loan

import "errors"

// All four kinds are recoverable by the caller; anything else bubbling out
// of a Store or Storage is a server fault and is surfaced generically.
var (
	ErrNotFound     = errors.New("loan: not found")
	ErrConflict     = errors.New("loan: already submitted")
	ErrInvalidInput = errors.New("loan: invalid input")
	ErrUnauthorized = errors.New("loan: unauthorized")
)
