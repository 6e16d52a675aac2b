package game

import "errors"

// Request-scoped failures. They are reported to the requester only and
// never leave room state mutated.
var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is full")
	ErrInvalidName         = errors.New("name must not be empty")
	ErrNotHost             = errors.New("only the host may do that")
	ErrNotYourTurn         = errors.New("it is not your turn")
	ErrWrongPhase          = errors.New("action not allowed in the current phase")
	ErrInsufficientPlayers = errors.New("at least 3 players are required")
)
