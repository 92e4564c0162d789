package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
	"github.com/rocketscienceinc/tictactoe-relay/internal/registry"
)

var errRedisDown = errors.New("redis down")

type mockMirror struct {
	mock.Mock
}

func (m *mockMirror) CreateOrUpdate(ctx context.Context, room *entity.Room) error {
	return m.Called(ctx, room).Error(0)
}

func (m *mockMirror) DeleteByCode(ctx context.Context, code string) error {
	return m.Called(ctx, code).Error(0)
}

func codes(list ...string) registry.CodeGenerator {
	i := 0
	return func() (string, error) {
		code := list[min(i, len(list)-1)]
		i++
		return code, nil
	}
}

func newManager(t *testing.T, mirror roomMirror, generate registry.CodeGenerator) *RoomManager {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRoomManager(logger, registry.New(generate, 3), mirror, time.Second)
}

// startGame creates a room for c1 and seats c2, returning the room code.
func startGame(t *testing.T, manager *RoomManager) string {
	t.Helper()
	ctx := context.Background()

	code, err := manager.CreateRoom(ctx, "c1", "alice", nil)
	require.NoError(t, err)
	require.NoError(t, manager.JoinRoom(ctx, "c2", code, "bob", nil))

	return code
}

func TestRoomManager_CreateRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns the code to the creator", func(t *testing.T) {
		// Given: a manager without a mirror
		manager := newManager(t, nil, codes("QWERTY"))

		// When: a room is created
		var announced string
		code, err := manager.CreateRoom(ctx, "c1", "alice", func(code string) { announced = code })

		// Then: the creator is X in a waiting room
		require.NoError(t, err)
		assert.Equal(t, "QWERTY", code)
		assert.Equal(t, code, announced)

		room, err := manager.GetRoom(code)
		require.NoError(t, err)
		require.Len(t, room.Players, 1)
		assert.Equal(t, entity.PlayerX, room.Players[0].Symbol)
		assert.False(t, room.GameActive)
	})

	t.Run("Leaves the previous room", func(t *testing.T) {
		// Given: a connection that already created a room
		manager := newManager(t, nil, codes("AAAAAA", "BBBBBB"))
		first, err := manager.CreateRoom(ctx, "c1", "alice", nil)
		require.NoError(t, err)

		// When: it creates another room
		second, err := manager.CreateRoom(ctx, "c1", "alice", nil)

		// Then: the first room is gone and the second is live
		require.NoError(t, err)
		_, err = manager.GetRoom(first)
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
		_, err = manager.GetRoom(second)
		require.NoError(t, err)
	})

	t.Run("Mirrors the new room", func(t *testing.T) {
		// Given: a mirror that accepts writes
		mirror := &mockMirror{}
		mirror.On("CreateOrUpdate", mock.Anything, mock.MatchedBy(func(room *entity.Room) bool {
			return room.Code == "QWERTY"
		})).Return(nil).Once()
		manager := newManager(t, mirror, codes("QWERTY"))

		// When: a room is created
		_, err := manager.CreateRoom(ctx, "c1", "alice", nil)

		// Then: the snapshot was written
		require.NoError(t, err)
		mirror.AssertExpectations(t)
	})

	t.Run("Mirror failures do not fail the game", func(t *testing.T) {
		// Given: a mirror that is down
		mirror := &mockMirror{}
		mirror.On("CreateOrUpdate", mock.Anything, mock.Anything).Return(errRedisDown)
		manager := newManager(t, mirror, codes("QWERTY"))

		// When: a room is created
		code, err := manager.CreateRoom(ctx, "c1", "alice", nil)

		// Then: the room still exists
		require.NoError(t, err)
		_, err = manager.GetRoom(code)
		require.NoError(t, err)
	})
}

func TestRoomManager_JoinRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("Second player starts the game", func(t *testing.T) {
		// Given: a waiting room
		manager := newManager(t, nil, codes("QWERTY"))
		code, err := manager.CreateRoom(ctx, "c1", "alice", nil)
		require.NoError(t, err)

		// When: a second player joins with a lower-case code
		var started *entity.Room
		err = manager.JoinRoom(ctx, "c2", "qwerty", "bob", func(room *entity.Room) { started = room })

		// Then: both players are seated and the game is active
		require.NoError(t, err)
		require.NotNil(t, started)
		assert.Equal(t, code, started.Code)
		assert.True(t, started.GameActive)
		require.Len(t, started.Players, 2)
		assert.Equal(t, "alice", started.Players[0].Name)
		assert.Equal(t, entity.PlayerX, started.Players[0].Symbol)
		assert.Equal(t, "bob", started.Players[1].Name)
		assert.Equal(t, entity.PlayerO, started.Players[1].Symbol)
	})

	t.Run("Unknown room fails with ErrRoomNotFound", func(t *testing.T) {
		manager := newManager(t, nil, codes("QWERTY"))

		err := manager.JoinRoom(ctx, "c2", "NOPE00", "bob", nil)

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
		assert.False(t, apperror.IsIgnored(err))
	})

	t.Run("Third player fails with ErrRoomFull", func(t *testing.T) {
		// Given: a full room
		manager := newManager(t, nil, codes("QWERTY"))
		code := startGame(t, manager)
		before, err := manager.GetRoom(code)
		require.NoError(t, err)

		// When: a third player joins
		called := false
		err = manager.JoinRoom(ctx, "c3", code, "carol", func(*entity.Room) { called = true })

		// Then: the join fails and the room is untouched
		require.ErrorIs(t, err, apperror.ErrRoomFull)
		assert.False(t, called)
		after, err := manager.GetRoom(code)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("Joining the own room fails with ErrAlreadyInRoom", func(t *testing.T) {
		manager := newManager(t, nil, codes("QWERTY"))
		code, err := manager.CreateRoom(ctx, "c1", "alice", nil)
		require.NoError(t, err)

		err = manager.JoinRoom(ctx, "c1", code, "alice", nil)

		require.ErrorIs(t, err, apperror.ErrAlreadyInRoom)
	})

	t.Run("Failed join keeps the previous room", func(t *testing.T) {
		// Given: a connection waiting in its own room
		manager := newManager(t, nil, codes("QWERTY"))
		code, err := manager.CreateRoom(ctx, "c1", "alice", nil)
		require.NoError(t, err)

		// When: it tries to join a room that does not exist
		err = manager.JoinRoom(ctx, "c1", "NOPE00", "alice", nil)

		// Then: it still owns its room
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
		_, err = manager.GetRoom(code)
		require.NoError(t, err)
	})
}

func TestRoomManager_MakeMove(t *testing.T) {
	ctx := context.Background()

	t.Run("Scenario: X wins on the top row", func(t *testing.T) {
		// Given: an active game
		manager := newManager(t, nil, codes("QWERTY"))
		code := startGame(t, manager)

		// When: X and O alternate on 0,3,1,4,2
		var updates []*entity.GameUpdate
		for i, cell := range []int{0, 3, 1, 4, 2} {
			conn := "c1"
			if i%2 == 1 {
				conn = "c2"
			}
			require.NoError(t, manager.MakeMove(ctx, conn, code, cell, func(update *entity.GameUpdate) {
				updates = append(updates, update)
			}))
		}

		// Then: every move was published and the last one ends the game
		require.Len(t, updates, 5)
		assert.Equal(t, entity.PlayerO, updates[0].CurrentPlayer)
		assert.True(t, updates[3].GameActive)

		last := updates[4]
		assert.Equal(t, entity.Board{"X", "X", "X", "O", "O", "", "", "", ""}, last.Board)
		assert.Equal(t, entity.PlayerX, last.Winner)
		assert.False(t, last.GameActive)
	})

	t.Run("Scenario: full board is a draw", func(t *testing.T) {
		manager := newManager(t, nil, codes("QWERTY"))
		code := startGame(t, manager)

		var last *entity.GameUpdate
		for i, cell := range []int{0, 1, 2, 4, 3, 5, 7, 6, 8} {
			conn := "c1"
			if i%2 == 1 {
				conn = "c2"
			}
			require.NoError(t, manager.MakeMove(ctx, conn, code, cell, func(update *entity.GameUpdate) {
				last = update
			}))
		}

		require.NotNil(t, last)
		assert.False(t, last.GameActive)
		assert.Empty(t, last.Winner)
	})

	t.Run("Scenario: stranger and out-of-turn moves are ignored", func(t *testing.T) {
		// Given: an active game
		manager := newManager(t, nil, codes("QWERTY"))
		code := startGame(t, manager)
		before, err := manager.GetRoom(code)
		require.NoError(t, err)

		published := false
		onMoved := func(*entity.GameUpdate) { published = true }

		// When: a stranger and then O try to move on X's turn
		strangerErr := manager.MakeMove(ctx, "stranger", code, 0, onMoved)
		outOfTurnErr := manager.MakeMove(ctx, "c2", code, 0, onMoved)

		// Then: both are ignored without a broadcast or a change
		require.ErrorIs(t, strangerErr, apperror.ErrNotInRoom)
		require.ErrorIs(t, outOfTurnErr, apperror.ErrNotYourTurn)
		assert.True(t, apperror.IsIgnored(strangerErr))
		assert.True(t, apperror.IsIgnored(outOfTurnErr))
		assert.False(t, published)

		after, err := manager.GetRoom(code)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("Move in an unknown room is ignored", func(t *testing.T) {
		manager := newManager(t, nil, codes("QWERTY"))

		err := manager.MakeMove(ctx, "c1", "NOPE00", 0, nil)

		require.ErrorIs(t, err, apperror.ErrNoSuchRoom)
		assert.True(t, apperror.IsIgnored(err))
	})

	t.Run("Move before the second player joins is ignored", func(t *testing.T) {
		manager := newManager(t, nil, codes("QWERTY"))
		code, err := manager.CreateRoom(ctx, "c1", "alice", nil)
		require.NoError(t, err)

		err = manager.MakeMove(ctx, "c1", code, 0, nil)

		require.ErrorIs(t, err, apperror.ErrGameNotActive)
	})

	t.Run("Out of range cell is ignored", func(t *testing.T) {
		manager := newManager(t, nil, codes("QWERTY"))
		code := startGame(t, manager)

		err := manager.MakeMove(ctx, "c1", code, 42, nil)

		require.ErrorIs(t, err, apperror.ErrInvalidCell)
	})
}

func TestRoomManager_SendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("Relays the sender's name to the room", func(t *testing.T) {
		manager := newManager(t, nil, codes("QWERTY"))
		code := startGame(t, manager)

		var gotCode string
		var got *entity.ChatMessage
		err := manager.SendMessage(ctx, "c2", "hi", func(code string, msg *entity.ChatMessage) {
			gotCode, got = code, msg
		})

		require.NoError(t, err)
		assert.Equal(t, code, gotCode)
		assert.Equal(t, &entity.ChatMessage{Player: "bob", Message: "hi"}, got)
	})

	t.Run("Non-member chat is ignored", func(t *testing.T) {
		manager := newManager(t, nil, codes("QWERTY"))
		startGame(t, manager)

		called := false
		err := manager.SendMessage(ctx, "stranger", "hi", func(string, *entity.ChatMessage) { called = true })

		require.ErrorIs(t, err, apperror.ErrNotInRoom)
		assert.False(t, called)
	})
}

func TestRoomManager_Disconnect(t *testing.T) {
	ctx := context.Background()

	t.Run("Scenario: both players leave and the room is removed", func(t *testing.T) {
		// Given: an active game mirrored to a store
		mirror := &mockMirror{}
		mirror.On("CreateOrUpdate", mock.Anything, mock.Anything).Return(nil)
		mirror.On("DeleteByCode", mock.Anything, "QWERTY").Return(nil).Once()
		manager := newManager(t, mirror, codes("QWERTY"))
		code := startGame(t, manager)

		// When: X disconnects
		left, err := manager.Disconnect(ctx, "c1")

		// Then: the room remains with O and the game flag untouched
		require.NoError(t, err)
		assert.Equal(t, code, left)
		room, err := manager.GetRoom(code)
		require.NoError(t, err)
		require.Len(t, room.Players, 1)
		assert.Equal(t, "c2", room.Players[0].ConnectionID)
		assert.True(t, room.GameActive)

		// When: O disconnects
		_, err = manager.Disconnect(ctx, "c2")

		// Then: the room is gone from the registry and the mirror
		require.NoError(t, err)
		_, err = manager.GetRoom(code)
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
		mirror.AssertExpectations(t)
		assert.Equal(t, registry.Stats{}, manager.Stats())
	})

	t.Run("Unknown connection is ignored", func(t *testing.T) {
		manager := newManager(t, nil, codes("QWERTY"))

		_, err := manager.Disconnect(ctx, "stranger")

		assert.True(t, apperror.IsIgnored(err))
	})

	t.Run("Last player leaving removes the room", func(t *testing.T) {
		manager := newManager(t, nil, codes("QWERTY"))
		code, err := manager.CreateRoom(ctx, "c1", "alice", nil)
		require.NoError(t, err)

		_, err = manager.Disconnect(ctx, "c1")

		require.NoError(t, err)
		_, err = manager.GetRoom(code)
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})
}
