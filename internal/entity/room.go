package entity

import (
	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
)

const MaxPlayers = 2

// Room is one tic-tac-toe session. It is not safe for concurrent use; the registry serializes access.
type Room struct {
	Code          string    `json:"code"`
	Players       []*Player `json:"players"`
	Board         Board     `json:"board"`
	CurrentPlayer string    `json:"currentPlayer"`
	GameActive    bool      `json:"gameActive"`
	Winner        string    `json:"winner,omitempty"`
}

// GameUpdate is the state broadcast after every accepted move.
type GameUpdate struct {
	Board         Board  `json:"board"`
	CurrentPlayer string `json:"currentPlayer"`
	GameActive    bool   `json:"gameActive"`
	Winner        string `json:"winner,omitempty"`
}

// NewRoom creates a waiting room owned by creator, who plays X.
func NewRoom(code string, creator *Player) *Room {
	creator.Symbol = PlayerX

	return &Room{
		Code:          code,
		Players:       []*Player{creator},
		CurrentPlayer: PlayerX,
	}
}

// Join appends the second player and starts the game. A finished board stays finished.
func (that *Room) Join(player *Player) error {
	if that.IsFull() {
		return apperror.ErrRoomFull
	}

	player.Symbol = that.freeSymbol()
	that.Players = append(that.Players, player)
	that.GameActive = that.Winner == EmptyCell && !IsBoardFull(that.Board)

	return nil
}

// freeSymbol gives O to the second joiner, or X when the remaining player already holds O.
func (that *Room) freeSymbol() string {
	if len(that.Players) == 1 && that.Players[0].Symbol == PlayerO {
		return PlayerX
	}
	return PlayerO
}

// MakeMove applies a move by the player bound to connectionID. Every rejection leaves the room untouched.
func (that *Room) MakeMove(connectionID string, cell int) error {
	if !that.GameActive {
		return apperror.ErrGameNotActive
	}

	player := that.FindPlayer(connectionID)
	if player == nil {
		return apperror.ErrNotInRoom
	}

	if player.Symbol != that.CurrentPlayer {
		return apperror.ErrNotYourTurn
	}

	if cell < 0 || cell >= BoardSize {
		return apperror.ErrInvalidCell
	}

	if that.Board[cell] != EmptyCell {
		return apperror.ErrCellOccupied
	}

	that.Board[cell] = player.Symbol

	switch winner := DetermineWinner(that.Board); {
	case winner != EmptyCell:
		that.Winner = winner
		that.GameActive = false
	case IsBoardFull(that.Board):
		that.GameActive = false
	default:
		that.CurrentPlayer = ToggleSymbol(that.CurrentPlayer)
	}

	return nil
}

// RemovePlayer drops the player bound to connectionID and reports whether one was found.
func (that *Room) RemovePlayer(connectionID string) bool {
	for i, player := range that.Players {
		if player.ConnectionID == connectionID {
			that.Players = append(that.Players[:i], that.Players[i+1:]...)
			return true
		}
	}

	return false
}

func (that *Room) FindPlayer(connectionID string) *Player {
	for _, player := range that.Players {
		if player.ConnectionID == connectionID {
			return player
		}
	}

	return nil
}

func (that *Room) IsEmpty() bool {
	return len(that.Players) == 0
}

func (that *Room) IsFull() bool {
	return len(that.Players) >= MaxPlayers
}

func (that *Room) Update() *GameUpdate {
	return &GameUpdate{
		Board:         that.Board,
		CurrentPlayer: that.CurrentPlayer,
		GameActive:    that.GameActive,
		Winner:        that.Winner,
	}
}

// Clone returns a deep copy that can leave the registry lock.
func (that *Room) Clone() *Room {
	clone := *that

	clone.Players = make([]*Player, 0, len(that.Players))
	for _, player := range that.Players {
		p := *player
		clone.Players = append(clone.Players, &p)
	}

	return &clone
}
