package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/mazerunner/internal/navigation"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	// timestampLayout has fixed width so stored values sort as text.
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// SQLiteRepository implements Repository on the game_sessions and
// game_moves tables.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// StartSession inserts a running session with a fresh UUID.
func (r *SQLiteRepository) StartSession(ctx context.Context, s NewSession) (Session, error) {
	if s.Lobby == "" || s.Team == "" || s.Player == "" {
		return Session{}, fmt.Errorf("%w: lobby, team and player are required", ErrInvalidSession)
	}

	session := Session{
		ID:        uuid.NewString(),
		Lobby:     s.Lobby,
		Team:      s.Team,
		Player:    s.Player,
		GridSize:  s.GridSize,
		StartedAt: r.now(),
		Outcome:   OutcomeRunning,
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO game_sessions (id, lobby, team, player, grid_size, started_at, outcome)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.Lobby,
		session.Team,
		session.Player,
		session.GridSize,
		session.StartedAt.Format(timestampLayout),
		string(session.Outcome),
	)
	if err != nil {
		return Session{}, fmt.Errorf("inserting session: %w", err)
	}

	return session, nil
}

// RecordMove appends a move and bumps the session's move counter.
func (r *SQLiteRepository) RecordMove(ctx context.Context, m Move) error {
	if m.SessionID == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidSession)
	}
	if !m.Direction.IsMove() {
		return fmt.Errorf("%w: %q is not a move", ErrInvalidSession, m.Direction)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	res, err := tx.ExecContext(ctx,
		"UPDATE game_sessions SET moves = moves + 1 WHERE id = ?",
		m.SessionID,
	)
	if err != nil {
		return fmt.Errorf("updating move count: %w", err)
	}
	if err := requireRow(res, m.SessionID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO game_moves (session_id, seq, from_row, from_col, direction, revisit, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.SessionID,
		m.Seq,
		m.From.Row,
		m.From.Col,
		string(m.Direction),
		m.Revisit,
		m.CreatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting move: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing move: %w", err)
	}
	return nil
}

// RecordScores stores the latest scores payload on the session.
func (r *SQLiteRepository) RecordScores(ctx context.Context, sessionID string, scores json.RawMessage) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE game_sessions SET last_scores = ? WHERE id = ?",
		string(scores),
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("updating scores: %w", err)
	}
	return requireRow(res, sessionID)
}

// FinishSession closes a session. Finishing twice keeps the first outcome.
func (r *SQLiteRepository) FinishSession(ctx context.Context, sessionID string, outcome Outcome, visited int) error {
	if outcome == "" || outcome == OutcomeRunning {
		return fmt.Errorf("%w: outcome %q does not finish a session", ErrInvalidSession, outcome)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE game_sessions
		 SET finished_at = ?, outcome = ?, visited = ?
		 WHERE id = ? AND finished_at IS NULL`,
		r.now().Format(timestampLayout),
		string(outcome),
		visited,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("finishing session: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		// Either unknown or already finished.
		if _, err := r.GetSession(ctx, sessionID); err != nil {
			return err
		}
	}
	return nil
}

// GetSession returns one session.
func (r *SQLiteRepository) GetSession(ctx context.Context, sessionID string) (Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, lobby, team, player, grid_size, started_at, finished_at, outcome, moves, visited, last_scores
		 FROM game_sessions WHERE id = ?`,
		sessionID,
	)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return s, err
}

// ListMoves returns a session's moves in sequence order.
func (r *SQLiteRepository) ListMoves(ctx context.Context, sessionID string) ([]Move, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id, seq, from_row, from_col, direction, revisit, created_at
		 FROM game_moves WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying moves: %w", err)
	}
	defer rows.Close()

	var moves []Move
	for rows.Next() {
		var (
			m         Move
			direction string
			createdAt string
		)
		if err := rows.Scan(&m.SessionID, &m.Seq, &m.From.Row, &m.From.Col, &direction, &m.Revisit, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning move: %w", err)
		}
		m.Direction = navigation.Direction(direction)
		if m.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		moves = append(moves, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating moves: %w", err)
	}
	return moves, nil
}

// ListSessions returns sessions newest first. An empty lobby lists all
// lobbies. limit defaults to 50 and is capped at 200.
func (r *SQLiteRepository) ListSessions(ctx context.Context, lobby string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, lobby, team, player, grid_size, started_at, finished_at, outcome, moves, visited, last_scores
		 FROM game_sessions
		 WHERE (? = '' OR lobby = ?)
		 ORDER BY started_at DESC, rowid DESC
		 LIMIT ?`,
		lobby, lobby, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]Session, 0, limit)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (Session, error) {
	var (
		s          Session
		outcome    string
		startedAt  string
		finishedAt sql.NullString
		scores     sql.NullString
	)
	err := sc.Scan(&s.ID, &s.Lobby, &s.Team, &s.Player, &s.GridSize,
		&startedAt, &finishedAt, &outcome, &s.Moves, &s.Visited, &scores)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("scanning session: %w", err)
	}

	s.Outcome = Outcome(outcome)
	if s.StartedAt, err = parseTimestamp(startedAt); err != nil {
		return Session{}, err
	}
	if finishedAt.Valid {
		ts, err := parseTimestamp(finishedAt.String)
		if err != nil {
			return Session{}, err
		}
		s.FinishedAt = &ts
	}
	if scores.Valid {
		s.LastScores = json.RawMessage(scores.String)
	}
	return s, nil
}

func requireRow(res sql.Result, sessionID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

func parseTimestamp(value string) (time.Time, error) {
	ts, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", value, err)
	}
	return ts, nil
}
