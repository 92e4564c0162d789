package websocket

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
)

// Inbound actions.
const (
	actionCreateRoom  = "create-room"
	actionJoinRoom    = "join-room"
	actionMakeMove    = "make-move"
	actionSendMessage = "send-message"
)

// Outbound actions.
const (
	actionRoomCreated    = "room-created"
	actionGameStart      = "game-start"
	actionGameUpdate     = "game-update"
	actionReceiveMessage = "receive-message"
	actionError          = "error"
)

var errMalformedPayload = errors.New("malformed payload")

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinRoomPayload struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type MakeMovePayload struct {
	RoomCode  string `json:"roomCode"`
	CellIndex *int   `json:"cellIndex"`
}

type SendMessagePayload struct {
	Message string `json:"message"`
}

type GameStartPayload struct {
	Room    *entity.Room     `json:"room"`
	Players []*entity.Player `json:"players"`
}

// decodePayload leaves v untouched when the message carries no payload.
func decodePayload(msg *Message, v any) error {
	if len(msg.Payload) == 0 || string(msg.Payload) == "null" {
		return nil
	}

	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%w for %s: %w", errMalformedPayload, msg.Action, err)
	}

	return nil
}

func encodeMessage(action string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", action, err)
	}

	data, err := json.Marshal(Message{Action: action, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s message: %w", action, err)
	}

	return data, nil
}
