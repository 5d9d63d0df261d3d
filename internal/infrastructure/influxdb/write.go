package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/mazerunner/internal/navigation"
)

// Measurement names.
const (
	measurementMove    = "maze_move"
	measurementSession = "maze_session"
)

// SessionSummary is the end-of-game record written by WriteSessionSummary.
type SessionSummary struct {
	Outcome  string
	Moves    int
	Visited  int
	Duration time.Duration
}

// WriteMove records one published move.
//
// Tags are lobby, player and direction; fields are the origin cell and
// whether the target had been visited before.
//
//	client.WriteMove("TestLobby", "Player4", navigation.Right, navigation.Coordinate{Row: 0, Col: 0}, false)
func (c *Client) WriteMove(lobby, player string, direction navigation.Direction, from navigation.Coordinate, revisit bool) {
	c.writePoint(measurementMove,
		map[string]string{
			"lobby":     lobby,
			"player":    player,
			"direction": string(direction),
		},
		map[string]any{
			"from_row": from.Row,
			"from_col": from.Col,
			"revisit":  revisit,
		},
		time.Now(),
	)
}

// WriteSessionSummary records how a session ended.
func (c *Client) WriteSessionSummary(lobby, player string, s SessionSummary) {
	c.writePoint(measurementSession,
		map[string]string{
			"lobby":   lobby,
			"player":  player,
			"outcome": s.Outcome,
		},
		map[string]any{
			"moves":            s.Moves,
			"visited":          s.Visited,
			"duration_seconds": s.Duration.Seconds(),
		},
		time.Now(),
	)
}

// writePoint queues a point. Points written after Close are dropped.
func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if c.closed.Load() {
		return
	}
	c.writer.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}
