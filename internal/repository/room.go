package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
)

const roomKeyPrefix = "room:"

// RoomRepository mirrors live rooms into Redis for operators. The relay never reads it back on startup.
type RoomRepository interface {
	CreateOrUpdate(ctx context.Context, room *entity.Room) error
	DeleteByCode(ctx context.Context, code string) error
}

type dbRoom struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoomRepository - snapshots expire after ttl so a crashed process leaves nothing behind for long.
func NewRoomRepository(client *redis.Client, ttl time.Duration) RoomRepository {
	return &dbRoom{
		client: client,
		ttl:    ttl,
	}
}

func (that *dbRoom) CreateOrUpdate(ctx context.Context, room *entity.Room) error {
	roomJSON, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	if err = that.client.Set(ctx, roomKeyPrefix+room.Code, roomJSON, that.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (that *dbRoom) DeleteByCode(ctx context.Context, code string) error {
	// a snapshot that already expired counts as deleted
	if err := that.client.Del(ctx, roomKeyPrefix+code).Err(); err != nil {
		return fmt.Errorf("failed to delete room by code: %w", err)
	}

	return nil
}
