package game

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/mazerunner/internal/navigation"
)

// State is one decoded game-state update.
type State struct {
	// Position is the player's current cell.
	Position navigation.Coordinate

	// Walls replaces the previous wall set wholesale.
	Walls navigation.WallSet
}

// wireState mirrors the JSON layout. CurrentPosition is a pointer so a
// missing field can be told apart from [0, 0].
type wireState struct {
	CurrentPosition *navigation.Coordinate  `json:"currentPosition"`
	Walls           []navigation.Coordinate `json:"walls"`
}

// DecodeGameState parses a game_state payload.
//
// Returns *DecodeError when the payload is not JSON, currentPosition is
// missing or null, or any coordinate is not a pair of integers. A missing
// walls field decodes to an empty wall set.
func DecodeGameState(topic string, payload []byte) (State, error) {
	var w wireState
	if err := json.Unmarshal(payload, &w); err != nil {
		return State{}, &DecodeError{Topic: topic, Reason: "invalid game state", Err: err}
	}
	if w.CurrentPosition == nil {
		return State{}, &DecodeError{Topic: topic, Reason: "currentPosition is missing"}
	}

	return State{
		Position: *w.CurrentPosition,
		Walls:    navigation.NewWallSet(w.Walls...),
	}, nil
}

// EncodeGameState is the inverse of DecodeGameState.
// Walls are written in row-major order.
func EncodeGameState(s State) ([]byte, error) {
	pos := s.Position
	data, err := json.Marshal(wireState{
		CurrentPosition: &pos,
		Walls:           s.Walls.Coordinates(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling game state: %w", err)
	}
	return data, nil
}
