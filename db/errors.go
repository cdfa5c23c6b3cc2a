package db

import "errors"

var (
	// ErrNotExist is returned by a Backend when no document has been stored yet.
	ErrNotExist = errors.New("document does not exist")

	// ErrMalformed wraps decode failures of a stored document.
	ErrMalformed = errors.New("malformed document")

	// ErrSaveFailed wraps every failed write. Handlers report it as
	// "changes not saved".
	ErrSaveFailed = errors.New("changes not saved")
)
