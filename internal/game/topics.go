package game

import (
	"fmt"
	"strings"
)

// Topic roots and leaf names used by the game server.
const (
	// TopicNewGame is where join requests are published.
	TopicNewGame = "new_game"

	// TopicPrefixGames is the root of all per-lobby topics.
	TopicPrefixGames = "games"

	leafStart     = "start"
	leafLobby     = "lobby"
	leafScores    = "scores"
	leafGameState = "game_state"
	leafMove      = "move"
)

// gameStateTopicParts is the segment count of games/{lobby}/{player}/game_state.
const gameStateTopicParts = 4

// Topics provides builders for game MQTT topics.
//
//	topics := game.Topics{}
//	topics.Move("TestLobby", "Player4")
//	// Returns: "games/TestLobby/Player4/move"
type Topics struct{}

// NewGame returns the join topic.
//
// Example: new_game
func (Topics) NewGame() string {
	return TopicNewGame
}

// Start returns the topic that carries START and STOP for a lobby.
//
// Example: games/TestLobby/start
func (Topics) Start(lobby string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixGames, lobby, leafStart)
}

// Lobby returns the lobby announcement topic.
//
// Example: games/TestLobby/lobby
func (Topics) Lobby(lobby string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixGames, lobby, leafLobby)
}

// Scores returns the score table topic.
//
// Example: games/TestLobby/scores
func (Topics) Scores(lobby string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixGames, lobby, leafScores)
}

// GameState returns the state topic for one player.
//
// Example: games/TestLobby/Player4/game_state
func (Topics) GameState(lobby, player string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefixGames, lobby, player, leafGameState)
}

// AllGameStates returns a pattern matching every player's state in a lobby.
//
// Pattern: games/TestLobby/+/game_state
func (Topics) AllGameStates(lobby string) string {
	return fmt.Sprintf("%s/%s/+/%s", TopicPrefixGames, lobby, leafGameState)
}

// Move returns the topic a player publishes moves to.
//
// Example: games/TestLobby/Player4/move
func (Topics) Move(lobby, player string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefixGames, lobby, player, leafMove)
}

// TopicKind classifies an inbound topic.
type TopicKind string

// Inbound topic kinds.
const (
	KindLobby     TopicKind = "lobby"
	KindGameState TopicKind = "game_state"
	KindScores    TopicKind = "scores"
	KindUnknown   TopicKind = "unknown"
)

// Classify reports which kind of inbound topic this is. Use
// ParseGameStateTopic to read the lobby and player of a game_state topic.
func Classify(topic string) TopicKind {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[0] != TopicPrefixGames {
		return KindUnknown
	}

	switch {
	case len(parts) == 3 && parts[2] == leafLobby:
		return KindLobby
	case len(parts) == 3 && parts[2] == leafScores:
		return KindScores
	case len(parts) == gameStateTopicParts && parts[3] == leafGameState:
		return KindGameState
	default:
		return KindUnknown
	}
}

// ParseGameStateTopic extracts the lobby and player from
// games/{lobby}/{player}/game_state. ok is false for any other topic.
func ParseGameStateTopic(topic string) (lobby, player string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != gameStateTopicParts || parts[0] != TopicPrefixGames || parts[3] != leafGameState {
		return "", "", false
	}
	if parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
