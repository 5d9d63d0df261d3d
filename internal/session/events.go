package session

import (
	"github.com/nerrad567/mazerunner/internal/navigation"
)

// Event channels passed to Events.Broadcast.
const (
	EventGameState       = "game.state"
	EventMove            = "game.move"
	EventSessionFinished = "session.finished"
)

// StateEvent is broadcast when a game state is applied.
type StateEvent struct {
	SessionID string                `json:"session_id"`
	Position  navigation.Coordinate `json:"position"`
	Walls     int                   `json:"walls"`
}

// MoveEvent is broadcast after a move is published.
type MoveEvent struct {
	SessionID string                `json:"session_id"`
	Seq       uint64                `json:"seq"`
	From      navigation.Coordinate `json:"from"`
	Direction navigation.Direction  `json:"direction"`
	Revisit   bool                  `json:"revisit"`
}

func (s *Session) broadcast(channel string, payload any) {
	if s.opts.Events != nil {
		s.opts.Events.Broadcast(channel, payload)
	}
}
