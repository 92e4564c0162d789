package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
	"github.com/rocketscienceinc/tictactoe-relay/internal/registry"
)

const defaultMirrorTimeout = time.Second

type roomStore interface {
	Create(creator *entity.Player, fn func(room *entity.Room)) (string, error)
	Join(code string, player *entity.Player, fn func(room *entity.Room)) error
	Update(code string, fn func(room *entity.Room) error) error
	Leave(connectionID string, fn func(room *entity.Room, removed bool)) (string, error)
	LeaveRoom(code, connectionID string, fn func(room *entity.Room, removed bool)) error
	RoomOf(connectionID string) (string, bool)
	Get(code string) (*entity.Room, error)
	Stats() registry.Stats
}

type roomMirror interface {
	CreateOrUpdate(ctx context.Context, room *entity.Room) error
	DeleteByCode(ctx context.Context, code string) error
}

// RoomManager runs the room state machine. Callbacks passed to its methods run while the room
// is locked, so whatever they publish reaches clients in the order the room changed.
type RoomManager struct {
	logger *slog.Logger

	rooms         roomStore
	mirror        roomMirror
	mirrorTimeout time.Duration
}

// NewRoomManager - mirror may be nil when no snapshot store is configured.
func NewRoomManager(logger *slog.Logger, rooms roomStore, mirror roomMirror, mirrorTimeout time.Duration) *RoomManager {
	if mirrorTimeout <= 0 {
		mirrorTimeout = defaultMirrorTimeout
	}

	return &RoomManager{
		logger:        logger.With("component", "room-manager"),
		rooms:         rooms,
		mirror:        mirror,
		mirrorTimeout: mirrorTimeout,
	}
}

// CreateRoom opens a room with the caller as X. A connection plays in one room at a time,
// so a previous room is left once the new one exists.
func (that *RoomManager) CreateRoom(ctx context.Context, connectionID, playerName string, onCreated func(code string)) (string, error) {
	log := that.logger.With("method", "CreateRoom", "connectionID", connectionID)

	previous, hadRoom := that.rooms.RoomOf(connectionID)

	player := &entity.Player{ConnectionID: connectionID, Name: playerName}
	code, err := that.rooms.Create(player, func(room *entity.Room) {
		that.saveSnapshot(ctx, room)

		if onCreated != nil {
			onCreated(room.Code)
		}
	})
	if err != nil {
		return "", fmt.Errorf("failed to create room: %w", err)
	}

	if hadRoom {
		that.leave(ctx, previous, connectionID)
	}

	log.Info("room created", "roomCode", code)

	return code, nil
}

// JoinRoom seats the caller as the second player and starts the game.
func (that *RoomManager) JoinRoom(ctx context.Context, connectionID, code, playerName string, onJoined func(room *entity.Room)) error {
	code = registry.NormalizeCode(code)
	log := that.logger.With("method", "JoinRoom", "connectionID", connectionID, "roomCode", code)

	previous, hadRoom := that.rooms.RoomOf(connectionID)
	if hadRoom && previous == code {
		return apperror.ErrAlreadyInRoom
	}

	player := &entity.Player{ConnectionID: connectionID, Name: playerName}
	err := that.rooms.Join(code, player, func(room *entity.Room) {
		that.saveSnapshot(ctx, room)

		if onJoined != nil {
			onJoined(room.Clone())
		}
	})
	if err != nil {
		return fmt.Errorf("failed to join room %s: %w", code, err)
	}

	if hadRoom {
		that.leave(ctx, previous, connectionID)
	}

	log.Info("player joined", "symbol", player.Symbol)

	return nil
}

// MakeMove applies a move. Every rejection is reported as an apperror.ErrIgnored error.
func (that *RoomManager) MakeMove(ctx context.Context, connectionID, code string, cell int, onMoved func(update *entity.GameUpdate)) error {
	err := that.rooms.Update(code, func(room *entity.Room) error {
		if err := room.MakeMove(connectionID, cell); err != nil {
			return err
		}

		that.saveSnapshot(ctx, room)

		if !room.GameActive {
			that.logger.Info("game finished", "roomCode", room.Code, "winner", room.Winner)
		}

		if onMoved != nil {
			onMoved(room.Update())
		}

		return nil
	})

	if errors.Is(err, apperror.ErrRoomNotFound) {
		return apperror.ErrNoSuchRoom
	}

	return err
}

// SendMessage relays a chat line from the caller to the room the caller plays in.
func (that *RoomManager) SendMessage(ctx context.Context, connectionID, text string, onMessage func(code string, msg *entity.ChatMessage)) error {
	code, ok := that.rooms.RoomOf(connectionID)
	if !ok {
		return apperror.ErrNotInRoom
	}

	err := that.rooms.Update(code, func(room *entity.Room) error {
		player := room.FindPlayer(connectionID)
		if player == nil {
			return apperror.ErrNotInRoom
		}

		if onMessage != nil {
			onMessage(room.Code, &entity.ChatMessage{Player: player.Name, Message: text})
		}

		return nil
	})

	if errors.Is(err, apperror.ErrRoomNotFound) {
		return apperror.ErrNotInRoom
	}

	return err
}

// Disconnect drops the connection from its room. The remaining player is not notified.
func (that *RoomManager) Disconnect(ctx context.Context, connectionID string) (string, error) {
	code, err := that.rooms.Leave(connectionID, func(room *entity.Room, removed bool) {
		that.afterLeave(ctx, room, removed)
	})
	if err != nil {
		return "", err
	}

	return code, nil
}

func (that *RoomManager) GetRoom(code string) (*entity.Room, error) {
	room, err := that.rooms.Get(registry.NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return room, nil
}

func (that *RoomManager) Stats() registry.Stats {
	return that.rooms.Stats()
}

func (that *RoomManager) leave(ctx context.Context, code, connectionID string) {
	err := that.rooms.LeaveRoom(code, connectionID, func(room *entity.Room, removed bool) {
		that.afterLeave(ctx, room, removed)
	})
	if err != nil && !errors.Is(err, apperror.ErrRoomNotFound) && !apperror.IsIgnored(err) {
		that.logger.Error("failed to leave previous room", "roomCode", code, "connectionID", connectionID, "error", err)
	}
}

func (that *RoomManager) afterLeave(ctx context.Context, room *entity.Room, removed bool) {
	if !removed {
		that.saveSnapshot(ctx, room)
		return
	}

	that.deleteSnapshot(ctx, room.Code)
	that.logger.Info("room removed", "roomCode", room.Code)
}

func (that *RoomManager) saveSnapshot(ctx context.Context, room *entity.Room) {
	if that.mirror == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, that.mirrorTimeout)
	defer cancel()

	if err := that.mirror.CreateOrUpdate(ctx, room); err != nil {
		that.logger.Warn("failed to mirror room", "roomCode", room.Code, "error", err)
	}
}

func (that *RoomManager) deleteSnapshot(ctx context.Context, code string) {
	if that.mirror == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, that.mirrorTimeout)
	defer cancel()

	if err := that.mirror.DeleteByCode(ctx, code); err != nil {
		that.logger.Warn("failed to delete mirrored room", "roomCode", code, "error", err)
	}
}
