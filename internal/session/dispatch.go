package session

import (
	"context"
	"fmt"

	"github.com/nerrad567/mazerunner/internal/game"
	"github.com/nerrad567/mazerunner/internal/infrastructure/metrics"
	"github.com/nerrad567/mazerunner/internal/infrastructure/mqtt"
)

// subscribe registers the lobby, game-state and scores topics. Handlers
// copy the payload and queue it for the dispatcher, blocking until there is
// room or the session ends.
func (s *Session) subscribe(ctx context.Context, inbound chan<- message) error {
	handler := s.enqueue(ctx, inbound)

	for _, topic := range []string{
		s.topics.Lobby(s.game.Lobby),
		s.topics.AllGameStates(s.game.Lobby),
		s.topics.Scores(s.game.Lobby),
	} {
		if err := s.opts.Transport.Subscribe(topic, s.opts.QoS, handler); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
		s.logger.Debug("subscribed", "topic", topic)
	}
	return nil
}

func (s *Session) enqueue(ctx context.Context, inbound chan<- message) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		msg := message{topic: topic, payload: append([]byte(nil), payload...)}
		select {
		case inbound <- msg:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// dispatch decodes inbound messages in arrival order and feeds the agent.
func (s *Session) dispatch(ctx context.Context, inbound <-chan message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-inbound:
			if err := s.handle(ctx, msg); err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn("inbound message rejected", "topic", msg.topic, "error", err)
			}
		}
	}
}

func (s *Session) handle(ctx context.Context, msg message) error {
	// The sentinel is plain text and may arrive on any subscribed topic.
	if game.IsTermination(msg.payload) {
		s.logger.Info("termination received", "topic", msg.topic)
		if err := s.agent.ApplyTermination(ctx); err != nil {
			return err
		}
		s.termOnce.Do(func() { close(s.terminated) })
		return nil
	}

	switch game.Classify(msg.topic) {
	case game.KindGameState:
		lobby, player, ok := game.ParseGameStateTopic(msg.topic)
		if !ok {
			s.opts.Metrics.DecodeError(metrics.KindTopic)
			s.logger.Debug("malformed game state topic", "topic", msg.topic)
			return nil
		}
		if lobby != s.game.Lobby || player != s.game.Player {
			s.logger.Debug("ignoring game state for another player", "lobby", lobby, "player", player)
			return nil
		}
		state, err := game.DecodeGameState(msg.topic, msg.payload)
		if err != nil {
			return s.decodeFailed(metrics.KindGameState, err)
		}
		if err := s.agent.ApplyGameState(ctx, state); err != nil {
			return err
		}
		s.opts.Metrics.GameStateApplied()
		s.broadcast(EventGameState, StateEvent{
			SessionID: s.id,
			Position:  state.Position,
			Walls:     state.Walls.Len(),
		})
		s.logger.Debug("game state applied",
			"position", state.Position.String(),
			"walls", state.Walls.Len(),
		)

	case game.KindScores:
		scores, err := game.DecodeScores(msg.topic, msg.payload)
		if err != nil {
			return s.decodeFailed(metrics.KindScores, err)
		}
		s.logger.Info("scores received", "scores", string(scores.Raw))
		if s.historyOK {
			if err := s.opts.History.RecordScores(ctx, s.id, scores.Raw); err != nil {
				s.logger.Warn("failed to record scores", "error", err)
			}
		}

	case game.KindLobby:
		s.logger.Info("lobby message", "message", string(msg.payload))

	default:
		s.opts.Metrics.DecodeError(metrics.KindTopic)
		s.logger.Debug("message on unexpected topic", "topic", msg.topic)
	}
	return nil
}

// decodeFailed counts a rejected payload. The previous state is kept.
func (s *Session) decodeFailed(kind string, err error) error {
	s.decodeErrors.Add(1)
	s.opts.Metrics.DecodeError(kind)
	return err
}
