// Package agent holds the player's game state and turns it into moves.
//
// The state (current position, walls, visited cells, game-over flag) is owned
// by a single goroutine started with Run. Updates and move requests are sent
// to it as messages, so a move is always computed from the states applied
// before it, in the order they were delivered.
//
//	a := agent.New(navigation.DefaultGridSize)
//	go a.Run(ctx)
//
//	_ = a.ApplyGameState(ctx, st)
//	dec, err := a.NextMove(ctx)
//	switch {
//	case errors.Is(err, agent.ErrNoLegalMove):
//	    // boxed in; do not publish
//	case err != nil:
//	    return err
//	}
package agent
