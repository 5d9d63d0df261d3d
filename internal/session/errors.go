package session

import "errors"

// Domain errors for the session driver.
var (
	// ErrInvalidOptions is returned by New when required options are missing.
	ErrInvalidOptions = errors.New("session: invalid options")

	// ErrAlreadyRun is returned when Run is called a second time.
	ErrAlreadyRun = errors.New("session: already run")
)
