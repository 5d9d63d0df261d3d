package api

import (
	"errors"
	"net/http"

	"github.com/nerrad567/mazerunner/internal/agent"
	"github.com/nerrad567/mazerunner/internal/navigation"
)

// StatusResponse describes the session being played.
type StatusResponse struct {
	SessionID string `json:"session_id,omitempty"`
	Lobby     string `json:"lobby"`
	Team      string `json:"team"`
	Player    string `json:"player"`
	GridSize  int    `json:"grid_size"`

	// Active is true while the session is running.
	Active bool `json:"active"`

	HasState     bool                    `json:"has_state"`
	Position     *navigation.Coordinate  `json:"position,omitempty"`
	Walls        []navigation.Coordinate `json:"walls"`
	VisitedCount int                     `json:"visited_count"`
	GameOver     bool                    `json:"game_over"`
	StateSeq     uint64                  `json:"state_seq"`
	Moves        uint64                  `json:"moves"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.status.Config()
	resp := StatusResponse{
		SessionID: s.status.ID(),
		Lobby:     cfg.Lobby,
		Team:      cfg.Team,
		Player:    cfg.Player,
		GridSize:  cfg.GridSize,
		Walls:     []navigation.Coordinate{},
	}

	snap, err := s.status.Snapshot(r.Context())
	switch {
	case errors.Is(err, agent.ErrStopped):
		writeJSON(w, http.StatusOK, resp)
		return
	case err != nil:
		s.logger.Warn("reading agent snapshot", "error", err)
		writeInternalError(w, "reading session state")
		return
	}

	resp.Active = resp.SessionID != ""
	resp.HasState = snap.HasState
	resp.VisitedCount = snap.VisitedCount
	resp.GameOver = snap.GameOver
	resp.StateSeq = snap.StateSeq
	resp.Moves = snap.Moves
	if snap.HasState {
		pos := snap.Position
		resp.Position = &pos
	}
	resp.Walls = append(resp.Walls, snap.Walls...)

	writeJSON(w, http.StatusOK, resp)
}
