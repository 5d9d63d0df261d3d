package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/mazerunner/internal/history"
	"github.com/nerrad567/mazerunner/internal/navigation"
)

// SessionResponse is one recorded session.
type SessionResponse struct {
	ID         string          `json:"id"`
	Lobby      string          `json:"lobby"`
	Team       string          `json:"team"`
	Player     string          `json:"player"`
	GridSize   int             `json:"grid_size"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Outcome    string          `json:"outcome"`
	Moves      int             `json:"moves"`
	Visited    int             `json:"visited"`
	LastScores json.RawMessage `json:"last_scores,omitempty"`
}

// MoveResponse is one recorded move.
type MoveResponse struct {
	Seq       int                   `json:"seq"`
	From      navigation.Coordinate `json:"from"`
	Direction string                `json:"direction"`
	Revisit   bool                  `json:"revisit"`
	CreatedAt time.Time             `json:"created_at"`
}

func toSessionResponse(s history.Session) SessionResponse {
	return SessionResponse{
		ID:         s.ID,
		Lobby:      s.Lobby,
		Team:       s.Team,
		Player:     s.Player,
		GridSize:   s.GridSize,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Outcome:    string(s.Outcome),
		Moves:      s.Moves,
		Visited:    s.Visited,
		LastScores: s.LastScores,
	}
}

// handleListSessions lists sessions newest first.
// Query parameters: lobby (optional filter) and limit.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	lobby := r.URL.Query().Get("lobby")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	sessions, err := s.history.ListSessions(r.Context(), lobby, limit)
	if err != nil {
		s.logger.Error("listing sessions", "error", err)
		writeInternalError(w, "failed to list sessions")
		return
	}

	out := make([]SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionResponse(sess))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": out,
		"count":    len(out),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

// handleListMoves returns a session's moves in the order they were published.
func (s *Server) handleListMoves(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	moves, err := s.history.ListMoves(r.Context(), sess.ID)
	if err != nil {
		s.logger.Error("listing moves", "session_id", sess.ID, "error", err)
		writeInternalError(w, "failed to list moves")
		return
	}

	out := make([]MoveResponse, 0, len(moves))
	for _, m := range moves {
		out = append(out, MoveResponse{
			Seq:       m.Seq,
			From:      m.From,
			Direction: string(m.Direction),
			Revisit:   m.Revisit,
			CreatedAt: m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"moves":      out,
		"count":      len(out),
	})
}

// lookupSession loads the session named by the {id} URL parameter, writing
// the error response itself when that fails.
func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (history.Session, bool) {
	id := chi.URLParam(r, "id")
	sess, err := s.history.GetSession(r.Context(), id)
	switch {
	case errors.Is(err, history.ErrSessionNotFound):
		writeNotFound(w, "session not found")
		return history.Session{}, false
	case err != nil:
		s.logger.Error("getting session", "session_id", id, "error", err)
		writeInternalError(w, "failed to get session")
		return history.Session{}, false
	}
	return sess, true
}
