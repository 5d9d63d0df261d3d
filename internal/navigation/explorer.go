package navigation

import (
	"fmt"

	"github.com/zyedidia/generic/mapset"
)

// Decision is the full result of a move selection.
type Decision struct {
	// From is the cell the move was computed for.
	From Coordinate

	// Direction is the chosen move, or DirectionError.
	Direction Direction

	// Target is the cell the move leads to. Equal to From for DirectionError.
	Target Coordinate

	// Revisit is true when every unvisited neighbour was unavailable and the
	// explorer fell back to a cell it had already occupied.
	Revisit bool
}

// Explorer picks moves over a square grid, preferring unvisited cells.
type Explorer struct {
	size    int
	visited mapset.Set[Coordinate]
}

// NewExplorer creates an explorer for a size×size grid.
// A non-positive size falls back to DefaultGridSize.
func NewExplorer(size int) *Explorer {
	if size <= 0 {
		size = DefaultGridSize
	}
	return &Explorer{
		size:    size,
		visited: mapset.New[Coordinate](),
	}
}

// Size returns the grid side length.
func (e *Explorer) Size() int {
	return e.size
}

// InBounds reports whether c lies on the grid.
func (e *Explorer) InBounds(c Coordinate) bool {
	return c.Row >= 0 && c.Row < e.size && c.Col >= 0 && c.Col < e.size
}

// SelectMove marks current as visited and returns the direction to take.
//
// Unvisited, non-wall, on-grid neighbours win over visited ones; within each
// group the order is RIGHT, DOWN, LEFT, UP. DirectionError is returned (with
// a nil error) when no neighbour qualifies. The only error is ErrOutOfBounds
// for a current position off the grid, in which case nothing is recorded.
func (e *Explorer) SelectMove(current Coordinate, walls WallSet) (Direction, error) {
	d, err := e.Decide(current, walls)
	if err != nil {
		return DirectionError, err
	}
	return d.Direction, nil
}

// Decide is SelectMove with the target cell and revisit flag included.
func (e *Explorer) Decide(current Coordinate, walls WallSet) (Decision, error) {
	if !e.InBounds(current) {
		return Decision{From: current, Direction: DirectionError, Target: current},
			fmt.Errorf("%w: %s on %dx%d grid", ErrOutOfBounds, current, e.size, e.size)
	}

	e.visited.Put(current)

	var fresh, seen []Direction
	for _, d := range searchOrder {
		next := current.Step(d)
		if walls.Has(next) {
			continue
		}
		if e.visited.Has(next) {
			seen = append(seen, d)
		} else {
			fresh = append(fresh, d)
		}
	}

	if d, ok := e.firstInBounds(current, fresh); ok {
		return Decision{From: current, Direction: d, Target: current.Step(d)}, nil
	}
	if d, ok := e.firstInBounds(current, seen); ok {
		return Decision{From: current, Direction: d, Target: current.Step(d), Revisit: true}, nil
	}

	return Decision{From: current, Direction: DirectionError, Target: current}, nil
}

func (e *Explorer) firstInBounds(from Coordinate, candidates []Direction) (Direction, bool) {
	for _, d := range candidates {
		if e.InBounds(from.Step(d)) {
			return d, true
		}
	}
	return DirectionError, false
}

// Visited reports whether c has been occupied in the current game.
func (e *Explorer) Visited(c Coordinate) bool {
	return e.visited.Has(c)
}

// VisitedCount returns the number of distinct cells occupied so far.
func (e *Explorer) VisitedCount() int {
	return e.visited.Size()
}

// VisitedCells returns the visited cells sorted by row, then column.
func (e *Explorer) VisitedCells() []Coordinate {
	out := make([]Coordinate, 0, e.visited.Size())
	e.visited.Each(func(c Coordinate) {
		out = append(out, c)
	})
	sortCoordinates(out)
	return out
}

// Reset forgets every visited cell. Call it when a new game starts.
func (e *Explorer) Reset() {
	e.visited = mapset.New[Coordinate]()
}
