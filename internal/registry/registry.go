// Package registry keeps the live rooms of one process in memory.
//
// Each room is locked on its own so unrelated games never wait for each other.
// Lock order is always room, then registry.
package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
)

const DefaultCodeAttempts = 10

type CodeGenerator func() (string, error)

type entry struct {
	mu      sync.Mutex
	room    *entity.Room
	removed bool
}

type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*entry
	members map[string]string // connection id -> room code

	generate CodeGenerator
	attempts int
}

type Stats struct {
	Rooms       int `json:"rooms"`
	ActiveGames int `json:"active_games"`
	Players     int `json:"players"`
}

func New(generate CodeGenerator, attempts int) *Registry {
	if attempts <= 0 {
		attempts = DefaultCodeAttempts
	}

	return &Registry{
		rooms:    make(map[string]*entry),
		members:  make(map[string]string),
		generate: generate,
		attempts: attempts,
	}
}

// NormalizeCode upper-cases a client supplied room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Create stores a new room owned by creator and runs fn before any other event can reach the room.
// A generated code that is already live is retried.
func (that *Registry) Create(creator *entity.Player, fn func(room *entity.Room)) (string, error) {
	that.mu.Lock()

	code, err := that.freeCode()
	if err != nil {
		that.mu.Unlock()
		return "", err
	}

	e := &entry{room: entity.NewRoom(code, creator)}
	e.mu.Lock()
	defer e.mu.Unlock()

	that.rooms[code] = e
	that.members[creator.ConnectionID] = code
	that.mu.Unlock()

	if fn != nil {
		fn(e.room)
	}

	return code, nil
}

// freeCode must be called with that.mu held.
func (that *Registry) freeCode() (string, error) {
	for range that.attempts {
		code, err := that.generate()
		if err != nil {
			return "", fmt.Errorf("failed to generate room code: %w", err)
		}

		if _, taken := that.rooms[code]; !taken {
			return code, nil
		}
	}

	return "", fmt.Errorf("%w after %d attempts", apperror.ErrRoomCodeExhausted, that.attempts)
}

// Join adds player to the room and runs fn with the updated room while it is still locked.
func (that *Registry) Join(code string, player *entity.Player, fn func(room *entity.Room)) error {
	e, err := that.lookup(code)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return apperror.ErrRoomNotFound
	}

	if err = e.room.Join(player); err != nil {
		return err
	}

	that.mu.Lock()
	that.members[player.ConnectionID] = e.room.Code
	that.mu.Unlock()

	if fn != nil {
		fn(e.room)
	}

	return nil
}

// Update runs fn under the room lock. fn must not change the player list.
func (that *Registry) Update(code string, fn func(room *entity.Room) error) error {
	e, err := that.lookup(code)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return apperror.ErrRoomNotFound
	}

	return fn(e.room)
}

// Leave removes the connection from the room it is indexed under.
func (that *Registry) Leave(connectionID string, fn func(room *entity.Room, removed bool)) (string, error) {
	code, ok := that.RoomOf(connectionID)
	if !ok {
		return "", apperror.ErrNotInRoom
	}

	if err := that.LeaveRoom(code, connectionID, fn); err != nil {
		return "", err
	}

	return code, nil
}

// LeaveRoom removes the connection from the given room and drops the room once nobody is left.
// fn runs under the room lock and learns whether the room is gone.
func (that *Registry) LeaveRoom(code, connectionID string, fn func(room *entity.Room, removed bool)) error {
	e, err := that.lookup(code)
	if err != nil {
		that.forget(connectionID, code)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.room.RemovePlayer(connectionID) {
		return apperror.ErrNotInRoom
	}

	that.mu.Lock()
	if that.members[connectionID] == e.room.Code {
		delete(that.members, connectionID)
	}
	if e.room.IsEmpty() && !e.removed {
		e.removed = true
		delete(that.rooms, e.room.Code)
	}
	that.mu.Unlock()

	if fn != nil {
		fn(e.room, e.removed)
	}

	return nil
}

// Get returns a copy of the room.
func (that *Registry) Get(code string) (*entity.Room, error) {
	e, err := that.lookup(code)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return nil, apperror.ErrRoomNotFound
	}

	return e.room.Clone(), nil
}

// RoomOf resolves the room the connection currently plays in.
func (that *Registry) RoomOf(connectionID string) (string, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	code, ok := that.members[connectionID]
	return code, ok
}

func (that *Registry) Stats() Stats {
	that.mu.RLock()
	entries := make([]*entry, 0, len(that.rooms))
	for _, e := range that.rooms {
		entries = append(entries, e)
	}
	that.mu.RUnlock()

	var stats Stats
	for _, e := range entries {
		e.mu.Lock()
		if !e.removed {
			stats.Rooms++
			stats.Players += len(e.room.Players)
			if e.room.GameActive {
				stats.ActiveGames++
			}
		}
		e.mu.Unlock()
	}

	return stats
}

func (that *Registry) lookup(code string) (*entry, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	e, ok := that.rooms[NormalizeCode(code)]
	if !ok {
		return nil, apperror.ErrRoomNotFound
	}

	return e, nil
}

func (that *Registry) forget(connectionID, code string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.members[connectionID] == code {
		delete(that.members, connectionID)
	}
}
