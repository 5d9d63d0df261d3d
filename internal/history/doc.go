// Package history records played sessions and their moves in SQLite.
//
// A session row is opened when the player joins a lobby, every published
// move is appended to game_moves, and the row is closed with an outcome
// when the game ends. The schema lives in the top-level migrations package.
package history
