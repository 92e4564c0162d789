package pkg

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	RoomCodeLength = 6
	roomCodeChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateRoomCode - generates a short upper-case alphanumeric room code.
func GenerateRoomCode() (string, error) {
	code := make([]byte, RoomCodeLength)
	limit := big.NewInt(int64(len(roomCodeChars)))

	for i := range code {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to read random index: %w", err)
		}
		code[i] = roomCodeChars[n.Int64()]
	}

	return string(code), nil
}

// GenerateConnectionID - generates an identifier for one websocket connection.
func GenerateConnectionID() string {
	return uuid.NewString()
}
