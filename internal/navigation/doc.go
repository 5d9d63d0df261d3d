// Package navigation implements the maze exploration heuristic used by the
// player agent.
//
// The grid is a fixed-size square (10×10 unless configured otherwise),
// 0-indexed, addressed as (row, col). An Explorer remembers every cell it
// has been asked to move from and prefers stepping into cells it has not
// seen yet:
//
//	explorer := navigation.NewExplorer(navigation.DefaultGridSize)
//	dir, err := explorer.SelectMove(navigation.Coordinate{Row: 0, Col: 0}, walls)
//
// Neighbours are tried in the fixed order RIGHT, DOWN, LEFT, UP; unvisited
// cells first, then visited ones. Walls and off-grid cells are never chosen.
// When nothing qualifies the result is DirectionError, which is a normal
// outcome the caller must handle rather than send to the game server.
//
// An Explorer is not safe for concurrent use. The agent package owns one
// inside a single goroutine.
package navigation
