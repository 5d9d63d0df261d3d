// Package game defines the wire protocol spoken with the maze game server.
//
// Everything travels over MQTT. A player joins by publishing a JSON join
// request to "new_game", starts or stops the lobby with the literal strings
// START and STOP on games/{lobby}/start, and moves by publishing UP, DOWN,
// LEFT or RIGHT to games/{lobby}/{player}/move. The server pushes:
//
//   - games/{lobby}/lobby              lobby chatter (free text)
//   - games/{lobby}/{player}/game_state  JSON game state per player
//   - games/{lobby}/scores             JSON score table
//
// A game ends when any of those topics carries the exact payload
// "Game Over: Game has been stopped".
//
// Game state payloads look like:
//
//	{"currentPosition": [3, 4], "walls": [[3, 5], [2, 4]]}
//
// DecodeGameState turns them into navigation types and reports malformed
// input as *DecodeError, which matches ErrDecode with errors.Is.
package game
