package agent

import "errors"

// Domain errors for the agent package.
var (
	// ErrNoState is returned by NextMove before any game state has arrived.
	ErrNoState = errors.New("agent: no game state yet")

	// ErrGameOver is returned by NextMove after the termination message.
	ErrGameOver = errors.New("agent: game over")

	// ErrNoLegalMove is returned when every neighbour is a wall or off the grid.
	ErrNoLegalMove = errors.New("agent: no legal move")

	// ErrStopped is returned when the agent goroutine is no longer running.
	ErrStopped = errors.New("agent: stopped")
)
