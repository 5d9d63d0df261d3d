package history

import "errors"

var (
	// ErrSessionNotFound is returned when no session has the given ID.
	ErrSessionNotFound = errors.New("history: session not found")

	// ErrInvalidSession is returned for incomplete session or move data.
	ErrInvalidSession = errors.New("history: invalid session")
)
