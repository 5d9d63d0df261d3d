package agent

import (
	"context"
	"fmt"

	"github.com/nerrad567/mazerunner/internal/game"
	"github.com/nerrad567/mazerunner/internal/navigation"
)

// inboxSize bounds the number of queued operations.
const inboxSize = 32

// Snapshot is a read-only copy of the agent state.
type Snapshot struct {
	// HasState is false until the first game state has been applied.
	HasState bool

	Position     navigation.Coordinate
	Walls        []navigation.Coordinate
	VisitedCount int
	GameOver     bool

	// StateSeq counts applied game states since the last Reset.
	StateSeq uint64

	// Moves counts decisions handed out since the last Reset, dead ends included.
	Moves uint64
}

// Agent owns the player's view of the game and computes moves.
//
// All state lives inside the goroutine started by Run. Other goroutines talk
// to it only through the exported methods, which queue a request and wait
// for the reply, so operations are applied strictly in call order.
type Agent struct {
	explorer *navigation.Explorer
	inbox    chan request
	done     chan struct{}
}

type request struct {
	apply func(s *state)
	reply chan struct{}
}

// state is only touched from the Run goroutine.
type state struct {
	explorer *navigation.Explorer
	hasState bool
	position navigation.Coordinate
	walls    navigation.WallSet
	gameOver bool
	stateSeq uint64
	moves    uint64
}

// New creates an agent for a size×size grid. Call Run before using it.
func New(gridSize int) *Agent {
	return &Agent{
		explorer: navigation.NewExplorer(gridSize),
		inbox:    make(chan request, inboxSize),
		done:     make(chan struct{}),
	}
}

// Run processes requests until ctx is cancelled. It always returns ctx.Err().
// Run must be called exactly once.
func (a *Agent) Run(ctx context.Context) error {
	defer close(a.done)

	s := &state{explorer: a.explorer}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-a.inbox:
			req.apply(s)
			close(req.reply)
		}
	}
}

// do queues fn and waits for it to run on the agent goroutine.
func (a *Agent) do(ctx context.Context, fn func(s *state)) error {
	req := request{apply: fn, reply: make(chan struct{})}

	select {
	case a.inbox <- req:
	case <-a.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.reply:
		return nil
	case <-a.done:
		// Run may have finished the request just before exiting.
		select {
		case <-req.reply:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ApplyGameState replaces the current position and walls.
// States that arrive after termination are ignored.
func (a *Agent) ApplyGameState(ctx context.Context, gs game.State) error {
	return a.do(ctx, func(s *state) {
		if s.gameOver {
			return
		}
		s.hasState = true
		s.position = gs.Position
		s.walls = gs.Walls
		s.stateSeq++
	})
}

// ApplyTermination marks the game as over. NextMove returns ErrGameOver from
// then on until Reset.
func (a *Agent) ApplyTermination(ctx context.Context) error {
	return a.do(ctx, func(s *state) {
		s.gameOver = true
	})
}

// Reset starts a new game: forgets position, walls, visited cells and the
// termination flag.
func (a *Agent) Reset(ctx context.Context) error {
	return a.do(ctx, func(s *state) {
		s.explorer.Reset()
		s.hasState = false
		s.position = navigation.Coordinate{}
		s.walls = navigation.WallSet{}
		s.gameOver = false
		s.stateSeq = 0
		s.moves = 0
	})
}

// Snapshot returns a copy of the current state.
func (a *Agent) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := a.do(ctx, func(s *state) {
		snap = Snapshot{
			HasState:     s.hasState,
			Position:     s.position,
			Walls:        s.walls.Coordinates(),
			VisitedCount: s.explorer.VisitedCount(),
			GameOver:     s.gameOver,
			StateSeq:     s.stateSeq,
			Moves:        s.moves,
		}
	})
	return snap, err
}

// NextMove computes the move from the most recently applied state.
//
// Errors:
//   - ErrGameOver once termination has been applied
//   - ErrNoState before any game state arrived
//   - ErrNoLegalMove when boxed in; the Decision still carries DirectionError
//   - navigation.ErrOutOfBounds when the server reports an off-grid position
func (a *Agent) NextMove(ctx context.Context) (Decision, error) {
	var (
		dec     Decision
		moveErr error
	)
	err := a.do(ctx, func(s *state) {
		if s.gameOver {
			moveErr = ErrGameOver
			return
		}
		if !s.hasState {
			moveErr = ErrNoState
			return
		}

		nd, err := s.explorer.Decide(s.position, s.walls)
		if err != nil {
			moveErr = err
			return
		}
		s.moves++
		dec = Decision{
			Decision:     nd,
			StateSeq:     s.stateSeq,
			Seq:          s.moves,
			VisitedCount: s.explorer.VisitedCount(),
		}
		if nd.Direction == navigation.DirectionError {
			moveErr = fmt.Errorf("%w from %s", ErrNoLegalMove, nd.From)
		}
	})
	if err != nil {
		return Decision{}, err
	}
	return dec, moveErr
}

// Decision is a navigation decision annotated with agent bookkeeping.
type Decision struct {
	navigation.Decision

	// StateSeq is the sequence number of the state the move was computed from.
	StateSeq uint64

	// Seq numbers decisions within a game, starting at 1.
	Seq uint64

	// VisitedCount is the visited-set size after this decision.
	VisitedCount int
}
