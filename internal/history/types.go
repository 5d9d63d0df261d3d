package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nerrad567/mazerunner/internal/navigation"
)

// Outcome describes how a session ended.
type Outcome string

// Session outcomes.
const (
	OutcomeRunning   Outcome = "running"
	OutcomeGameOver  Outcome = "game_over"
	OutcomeBoxedIn   Outcome = "boxed_in"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// NewSession holds the fields supplied when a session starts.
type NewSession struct {
	Lobby    string
	Team     string
	Player   string
	GridSize int
}

// Session is one joined game.
type Session struct {
	ID         string
	Lobby      string
	Team       string
	Player     string
	GridSize   int
	StartedAt  time.Time
	FinishedAt *time.Time
	Outcome    Outcome

	// Moves is the number of moves published.
	Moves int

	// Visited is the number of distinct cells stepped on, set at finish.
	Visited int

	// LastScores is the most recent scores payload, verbatim.
	LastScores json.RawMessage
}

// Move is one published move.
type Move struct {
	SessionID string
	Seq       int
	From      navigation.Coordinate
	Direction navigation.Direction
	Revisit   bool
	CreatedAt time.Time
}

// Repository persists sessions and moves.
type Repository interface {
	StartSession(ctx context.Context, s NewSession) (Session, error)
	RecordMove(ctx context.Context, m Move) error
	RecordScores(ctx context.Context, sessionID string, scores json.RawMessage) error
	FinishSession(ctx context.Context, sessionID string, outcome Outcome, visited int) error
	GetSession(ctx context.Context, sessionID string) (Session, error)
	ListMoves(ctx context.Context, sessionID string) ([]Move, error)
	ListSessions(ctx context.Context, lobby string, limit int) ([]Session, error)
}
