package navigation

import "errors"

// Domain errors for the navigation package.
var (
	// ErrOutOfBounds is returned when the current position lies outside the grid.
	ErrOutOfBounds = errors.New("navigation: position out of bounds")

	// ErrInvalidCoordinate is returned when a coordinate cannot be decoded.
	ErrInvalidCoordinate = errors.New("navigation: invalid coordinate")
)
