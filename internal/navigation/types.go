package navigation

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/zyedidia/generic/mapset"
)

// DefaultGridSize is the side length of the game board.
const DefaultGridSize = 10

// Coordinate identifies a cell on the grid. It encodes as [row,col].
type Coordinate struct {
	Row int
	Col int
}

// String renders the coordinate as "(row,col)".
func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Step returns the neighbouring coordinate in the given direction.
// DirectionError returns c unchanged.
func (c Coordinate) Step(d Direction) Coordinate {
	switch d {
	case Right:
		return Coordinate{Row: c.Row, Col: c.Col + 1}
	case Down:
		return Coordinate{Row: c.Row + 1, Col: c.Col}
	case Left:
		return Coordinate{Row: c.Row, Col: c.Col - 1}
	case Up:
		return Coordinate{Row: c.Row - 1, Col: c.Col}
	default:
		return c
	}
}

// MarshalJSON encodes the coordinate as a two-element array: [row, col].
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{c.Row, c.Col})
}

// UnmarshalJSON decodes a two-element integer array.
// Anything else (null, wrong length, non-integers) is rejected.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCoordinate, err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("%w: want 2 values, got %d", ErrInvalidCoordinate, len(pair))
	}
	c.Row, c.Col = pair[0], pair[1]
	return nil
}

// Direction is a move the player can make.
type Direction string

// Directions understood by the game server, plus the no-move sentinel.
const (
	Up    Direction = "UP"
	Down  Direction = "DOWN"
	Left  Direction = "LEFT"
	Right Direction = "RIGHT"

	// DirectionError means no legal move exists from the current cell.
	// It is never a valid move to send to the server.
	DirectionError Direction = "ERROR"
)

// searchOrder is the fixed preference order used when picking a neighbour.
var searchOrder = [...]Direction{Right, Down, Left, Up}

// IsMove reports whether d is one of the four cardinal moves.
func (d Direction) IsMove() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (d Direction) String() string {
	return string(d)
}

// WallSet is the set of impassable cells reported by the server.
// The zero value is an empty set.
type WallSet struct {
	cells mapset.Set[Coordinate]
	init  bool
}

// NewWallSet builds a wall set from the given coordinates.
func NewWallSet(walls ...Coordinate) WallSet {
	ws := WallSet{cells: mapset.New[Coordinate](), init: true}
	for _, w := range walls {
		ws.cells.Put(w)
	}
	return ws
}

// Has reports whether c is a wall.
func (w WallSet) Has(c Coordinate) bool {
	if !w.init {
		return false
	}
	return w.cells.Has(c)
}

// Len returns the number of walls.
func (w WallSet) Len() int {
	if !w.init {
		return 0
	}
	return w.cells.Size()
}

// Coordinates returns the walls sorted by row, then column.
func (w WallSet) Coordinates() []Coordinate {
	out := make([]Coordinate, 0, w.Len())
	if !w.init {
		return out
	}
	w.cells.Each(func(c Coordinate) {
		out = append(out, c)
	})
	sortCoordinates(out)
	return out
}

func sortCoordinates(cs []Coordinate) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Row != cs[j].Row {
			return cs[i].Row < cs[j].Row
		}
		return cs[i].Col < cs[j].Col
	})
}
