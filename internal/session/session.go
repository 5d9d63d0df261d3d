package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/mazerunner/internal/agent"
	"github.com/nerrad567/mazerunner/internal/game"
	"github.com/nerrad567/mazerunner/internal/history"
	"github.com/nerrad567/mazerunner/internal/infrastructure/config"
	"github.com/nerrad567/mazerunner/internal/infrastructure/influxdb"
	"github.com/nerrad567/mazerunner/internal/infrastructure/logging"
	"github.com/nerrad567/mazerunner/internal/navigation"
)

const (
	// inboundSize bounds messages waiting for the dispatcher.
	inboundSize = 64

	// finishTimeout bounds bookkeeping after the game loop ends.
	finishTimeout = 5 * time.Second
)

// Result summarises a finished session.
type Result struct {
	SessionID string          `json:"session_id"`
	Outcome   history.Outcome `json:"outcome"`

	// Moves is the number of moves published.
	Moves int `json:"moves"`

	// Visited is the visited-set size after the last decision.
	Visited int `json:"visited"`

	// DecodeErrors counts inbound payloads that failed to decode.
	DecodeErrors int `json:"decode_errors"`

	Duration time.Duration `json:"duration_ns"`
}

// Session plays one game: join, start, move until the server ends the game.
//
// A Session is single use. Run blocks until the game ends or ctx is
// cancelled.
type Session struct {
	opts   Options
	game   config.GameConfig
	topics game.Topics
	logger Logger
	agent  *agent.Agent

	id         string
	publicID   atomic.Value
	historyOK  bool
	started    atomic.Bool
	startSent  bool // owned by the Run goroutine
	terminated chan struct{}
	termOnce   sync.Once

	decodeErrors atomic.Int64
}

// message is one inbound publish, copied off the transport goroutine.
type message struct {
	topic   string
	payload []byte
}

// New validates opts and creates a session.
func New(opts Options) (*Session, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("%w: transport is required", ErrInvalidOptions)
	}
	join := game.JoinRequest{
		LobbyName:  opts.Game.Lobby,
		TeamName:   opts.Game.Team,
		PlayerName: opts.Game.Player,
	}
	if err := join.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if opts.Game.MoveInterval <= 0 {
		return nil, fmt.Errorf("%w: move interval must be positive", ErrInvalidOptions)
	}
	if opts.NewTicker == nil {
		opts.NewTicker = newTimeTicker
	}

	var logger Logger = logging.Discard()
	if opts.Logger != nil {
		logger = opts.Logger
	}

	return &Session{
		opts:       opts,
		game:       opts.Game,
		logger:     logger,
		agent:      agent.New(opts.Game.GridSize),
		terminated: make(chan struct{}),
	}, nil
}

// ID returns the session identifier. Empty until Run starts.
func (s *Session) ID() string {
	id, _ := s.publicID.Load().(string)
	return id
}

// Snapshot returns the agent state while Run is active. Before Run it
// returns an empty snapshot; after Run it returns agent.ErrStopped.
func (s *Session) Snapshot(ctx context.Context) (agent.Snapshot, error) {
	if !s.started.Load() {
		return agent.Snapshot{}, nil
	}
	return s.agent.Snapshot(ctx)
}

// Config returns the game settings the session plays with.
func (s *Session) Config() config.GameConfig {
	return s.game
}

// Run plays the game.
//
// It returns a nil error when the server ends the game or, under the stop
// policy, when the player is boxed in. Cancelling ctx returns ctx.Err()
// promptly. Transport failures while joining are returned as is.
func (s *Session) Run(ctx context.Context) (Result, error) {
	if !s.started.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyRun
	}
	began := time.Now()
	s.open(ctx)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	inbound := make(chan message, inboundSize)

	g.Go(func() error {
		_ = s.agent.Run(gctx)
		return nil
	})
	g.Go(func() error {
		s.dispatch(gctx, inbound)
		return nil
	})

	var res Result
	g.Go(func() error {
		defer stop()
		var err error
		res, err = s.play(gctx, inbound)
		return err
	})

	err := g.Wait()
	if err != nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	res.SessionID = s.id
	res.DecodeErrors = int(s.decodeErrors.Load())
	res.Duration = time.Since(began)
	if res.Outcome == "" {
		res.Outcome = history.OutcomeFailed
	}
	if ctx.Err() != nil && res.Outcome == history.OutcomeFailed {
		res.Outcome = history.OutcomeCancelled
	}

	s.close(ctx, res)
	return res, err
}

// open allocates the session ID, recording it in history when available.
func (s *Session) open(ctx context.Context) {
	s.id = uuid.NewString()
	defer func() { s.publicID.Store(s.id) }()
	if s.opts.History == nil {
		return
	}

	rec, err := s.opts.History.StartSession(ctx, history.NewSession{
		Lobby:    s.game.Lobby,
		Team:     s.game.Team,
		Player:   s.game.Player,
		GridSize: s.game.GridSize,
	})
	if err != nil {
		s.logger.Warn("history unavailable for this session", "error", err)
		return
	}
	s.id = rec.ID
	s.historyOK = true
}

// close records the outcome everywhere it is tracked.
func (s *Session) close(ctx context.Context, res Result) {
	s.opts.Metrics.SessionFinished(string(res.Outcome))
	s.broadcast(EventSessionFinished, res)

	if s.opts.Telemetry != nil {
		s.opts.Telemetry.WriteSessionSummary(s.game.Lobby, s.game.Player, influxdb.SessionSummary{
			Outcome:  string(res.Outcome),
			Moves:    res.Moves,
			Visited:  res.Visited,
			Duration: res.Duration,
		})
	}

	if s.historyOK {
		finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
		defer cancel()
		if err := s.opts.History.FinishSession(finishCtx, s.id, res.Outcome, res.Visited); err != nil {
			s.logger.Warn("failed to record session outcome", "session_id", s.id, "error", err)
		}
	}

	s.logger.Info("session finished",
		"session_id", s.id,
		"outcome", res.Outcome,
		"moves", res.Moves,
		"visited", res.Visited,
		"decode_errors", res.DecodeErrors,
		"duration", res.Duration,
	)
}

// play subscribes, joins, starts the game and runs the move loop.
func (s *Session) play(ctx context.Context, inbound chan<- message) (Result, error) {
	res := Result{Outcome: history.OutcomeFailed}

	if err := s.subscribe(ctx, inbound); err != nil {
		return res, err
	}

	payload, err := game.JoinRequest{
		LobbyName:  s.game.Lobby,
		TeamName:   s.game.Team,
		PlayerName: s.game.Player,
	}.Encode()
	if err != nil {
		return res, err
	}
	if err := s.publish(s.topics.NewGame(), payload); err != nil {
		return res, fmt.Errorf("joining lobby %s: %w", s.game.Lobby, err)
	}
	s.logger.Info("join requested", "lobby", s.game.Lobby, "team", s.game.Team, "player", s.game.Player)

	if ended, err := s.wait(ctx, s.game.JoinDelay); ended || err != nil {
		return s.ended(ctx, res, err)
	}

	// A new game starts with an empty visited set.
	if err := s.agent.Reset(ctx); err != nil {
		return s.ended(ctx, res, err)
	}
	if err := s.publish(s.topics.Start(s.game.Lobby), []byte(game.CommandStart)); err != nil {
		return res, fmt.Errorf("starting game: %w", err)
	}
	s.startSent = true
	s.logger.Info("game start requested", "lobby", s.game.Lobby)

	if ended, err := s.wait(ctx, s.game.StartDelay); ended || err != nil {
		return s.ended(ctx, res, err)
	}

	ticker := s.opts.NewTicker(s.game.MoveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return s.ended(ctx, res, ctx.Err())
		case <-s.terminated:
			return s.ended(ctx, res, nil)
		case <-ticker.C():
		}

		done, err := s.step(ctx, &res)
		if err != nil {
			return s.ended(ctx, res, err)
		}
		if done {
			return res, nil
		}
	}
}

// step requests one move and publishes it. done reports the session is over.
func (s *Session) step(ctx context.Context, res *Result) (done bool, err error) {
	dec, err := s.agent.NextMove(ctx)
	if dec.Seq > 0 {
		res.Visited = dec.VisitedCount
	}

	switch {
	case err == nil:
	case errors.Is(err, agent.ErrNoState):
		s.logger.Debug("no game state yet, skipping tick")
		return false, nil
	case errors.Is(err, agent.ErrGameOver):
		// Termination was applied; the terminated channel fires next.
		return false, nil
	case errors.Is(err, agent.ErrNoLegalMove):
		s.opts.Metrics.NoLegalMove()
		if s.game.NoMovePolicy == config.NoMovePolicyStop {
			s.logger.Warn("boxed in, stopping", "position", dec.From.String())
			res.Outcome = history.OutcomeBoxedIn
			return true, nil
		}
		s.logger.Warn("boxed in, waiting for a new game state", "position", dec.From.String())
		return false, nil
	case errors.Is(err, navigation.ErrOutOfBounds):
		return true, fmt.Errorf("computing move: %w", err)
	default:
		return true, err
	}

	payload, err := game.EncodeMove(dec.Direction)
	if err != nil {
		return true, err
	}

	started := time.Now()
	if err := s.publish(s.topics.Move(s.game.Lobby, s.game.Player), payload); err != nil {
		s.logger.Error("failed to publish move", "direction", dec.Direction, "error", err)
		return false, nil
	}
	s.opts.Metrics.MovePublished(string(dec.Direction), time.Since(started))
	res.Moves++

	s.logger.Debug("move published",
		"seq", dec.Seq,
		"from", dec.From.String(),
		"direction", dec.Direction,
		"revisit", dec.Revisit,
	)

	s.broadcast(EventMove, MoveEvent{
		SessionID: s.id,
		Seq:       dec.Seq,
		From:      dec.From,
		Direction: dec.Direction,
		Revisit:   dec.Revisit,
	})
	if s.opts.Telemetry != nil {
		s.opts.Telemetry.WriteMove(s.game.Lobby, s.game.Player, dec.Direction, dec.From, dec.Revisit)
	}
	if s.historyOK {
		err := s.opts.History.RecordMove(ctx, history.Move{
			SessionID: s.id,
			Seq:       int(dec.Seq), // #nosec G115 -- bounded by game length
			From:      dec.From,
			Direction: dec.Direction,
			Revisit:   dec.Revisit,
		})
		if err != nil {
			s.logger.Warn("failed to record move", "seq", dec.Seq, "error", err)
		}
	}
	return false, nil
}

// ended maps the reason the loop stopped to an outcome. Termination
// publishes STOP, unless the game ended before START was sent.
func (s *Session) ended(ctx context.Context, res Result, err error) (Result, error) {
	if err != nil {
		if ctx.Err() != nil {
			res.Outcome = history.OutcomeCancelled
			return res, ctx.Err()
		}
		return res, err
	}

	res.Outcome = history.OutcomeGameOver
	s.logger.Info("game over", "lobby", s.game.Lobby)
	if !s.startSent {
		return res, nil
	}
	if err := s.publish(s.topics.Start(s.game.Lobby), []byte(game.CommandStop)); err != nil {
		s.logger.Warn("failed to publish STOP", "error", err)
	}
	return res, nil
}

// wait sleeps for d. ended is true when the game terminated meanwhile.
func (s *Session) wait(ctx context.Context, d time.Duration) (ended bool, err error) {
	if d <= 0 {
		select {
		case <-s.terminated:
			return true, nil
		default:
			return false, ctx.Err()
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-s.terminated:
		return true, nil
	case <-timer.C:
		return false, nil
	}
}

func (s *Session) publish(topic string, payload []byte) error {
	return s.opts.Transport.Publish(topic, payload, s.opts.QoS, false)
}
