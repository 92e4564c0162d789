package apperror

import (
	"errors"
	"fmt"
)

// Errors reported back to the requesting connection.
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomFull          = errors.New("room is full")
	ErrAlreadyInRoom     = errors.New("already in this room")
	ErrRoomCodeExhausted = errors.New("could not allocate a free room code")
)

// ErrIgnored is the root of actions that are dropped without any reply or broadcast.
var ErrIgnored = errors.New("action ignored")

var (
	ErrGameNotActive = fmt.Errorf("%w: game is not active", ErrIgnored)
	ErrNotInRoom     = fmt.Errorf("%w: connection is not a player in the room", ErrIgnored)
	ErrNotYourTurn   = fmt.Errorf("%w: it's not your turn", ErrIgnored)
	ErrCellOccupied  = fmt.Errorf("%w: cell is already occupied", ErrIgnored)
	ErrInvalidCell   = fmt.Errorf("%w: invalid cell index", ErrIgnored)
	ErrNoSuchRoom    = fmt.Errorf("%w: room does not exist", ErrIgnored)
)

// IsIgnored reports whether err belongs to the silently dropped family.
func IsIgnored(err error) bool {
	return errors.Is(err, ErrIgnored)
}
