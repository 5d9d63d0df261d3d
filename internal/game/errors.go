package game

import (
	"errors"
	"fmt"
)

// Domain errors for the game protocol.
var (
	// ErrDecode is matched by every *DecodeError.
	ErrDecode = errors.New("game: malformed payload")

	// ErrInvalidJoin is returned when a join request fails validation.
	ErrInvalidJoin = errors.New("game: invalid join request")

	// ErrInvalidMove is returned when a direction cannot be sent as a move.
	ErrInvalidMove = errors.New("game: invalid move")
)

// DecodeError describes a game-state or scores payload that could not be parsed.
type DecodeError struct {
	// Topic the payload arrived on (may be empty when decoding directly).
	Topic string

	// Reason is a short human-readable description.
	Reason string

	// Err is the underlying parse error, if any.
	Err error
}

// Error implements error.
func (e *DecodeError) Error() string {
	msg := "game: decode"
	if e.Topic != "" {
		msg += " " + e.Topic
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying parse error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrDecode) true for any *DecodeError.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}
