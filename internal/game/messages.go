package game

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nerrad567/mazerunner/internal/navigation"
)

// Join request field limits enforced by the game server.
const (
	minNameLength = 1
	maxNameLength = 20
)

// Lobby control commands published on games/{lobby}/start.
const (
	CommandStart = "START"
	CommandStop  = "STOP"
)

// TerminationPayload is the exact payload the server sends when a game ends.
const TerminationPayload = "Game Over: Game has been stopped"

// JoinRequest is published to new_game to register a player in a lobby.
type JoinRequest struct {
	LobbyName  string `json:"lobby_name"`
	TeamName   string `json:"team_name"`
	PlayerName string `json:"player_name"`
}

// Validate checks every field is between 1 and 20 characters.
func (r JoinRequest) Validate() error {
	var errs []string
	check := func(field, value string) {
		n := utf8.RuneCountInString(value)
		if n < minNameLength || n > maxNameLength {
			errs = append(errs, fmt.Sprintf("%s must be %d-%d characters", field, minNameLength, maxNameLength))
		}
	}
	check("lobby_name", r.LobbyName)
	check("team_name", r.TeamName)
	check("player_name", r.PlayerName)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidJoin, strings.Join(errs, "; "))
	}
	return nil
}

// Encode validates the request and returns its JSON payload.
func (r JoinRequest) Encode() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshalling join request: %w", err)
	}
	return data, nil
}

// EncodeMove returns the payload for a move. Only UP, DOWN, LEFT and RIGHT
// are accepted; DirectionError is rejected with ErrInvalidMove.
func EncodeMove(d navigation.Direction) ([]byte, error) {
	if !d.IsMove() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMove, string(d))
	}
	return []byte(d), nil
}

// IsTermination reports whether payload is the game-over sentinel.
func IsTermination(payload []byte) bool {
	return string(payload) == TerminationPayload
}

// Scores is a score table as published by the server.
// The layout is server-defined, so it is kept as raw JSON.
type Scores struct {
	Raw json.RawMessage
}

// DecodeScores checks the payload is JSON and wraps it.
func DecodeScores(topic string, payload []byte) (Scores, error) {
	if !json.Valid(payload) {
		return Scores{}, &DecodeError{Topic: topic, Reason: "scores are not valid JSON"}
	}
	raw := make(json.RawMessage, len(payload))
	copy(raw, payload)
	return Scores{Raw: raw}, nil
}
