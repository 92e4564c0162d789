package websocket

import (
	"context"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
	"github.com/rocketscienceinc/tictactoe-relay/internal/registry"
)

// handleCreateRoom - payload is the player's name as a JSON string.
func (that *Server) handleCreateRoom(ctx context.Context, client *Client, msg *Message) error {
	var playerName string
	if err := decodePayload(msg, &playerName); err != nil {
		return err
	}

	_, err := that.uRoom.CreateRoom(ctx, client.ID, playerName, func(code string) {
		that.hub.Join(code, client)
		client.sendAction(actionRoomCreated, code)
	})

	return err
}

func (that *Server) handleJoinRoom(ctx context.Context, client *Client, msg *Message) error {
	var payload JoinRoomPayload
	if err := decodePayload(msg, &payload); err != nil {
		return err
	}

	return that.uRoom.JoinRoom(ctx, client.ID, payload.RoomCode, payload.PlayerName, func(room *entity.Room) {
		that.hub.Join(room.Code, client)
		that.broadcast(room.Code, actionGameStart, GameStartPayload{Room: room, Players: room.Players})
	})
}

func (that *Server) handleMakeMove(ctx context.Context, client *Client, msg *Message) error {
	var payload MakeMovePayload
	if err := decodePayload(msg, &payload); err != nil {
		return err
	}

	if payload.CellIndex == nil {
		return apperror.ErrInvalidCell
	}

	code := registry.NormalizeCode(payload.RoomCode)

	return that.uRoom.MakeMove(ctx, client.ID, code, *payload.CellIndex, func(update *entity.GameUpdate) {
		that.broadcast(code, actionGameUpdate, update)
	})
}

func (that *Server) handleSendMessage(ctx context.Context, client *Client, msg *Message) error {
	var payload SendMessagePayload
	if err := decodePayload(msg, &payload); err != nil {
		return err
	}

	return that.uRoom.SendMessage(ctx, client.ID, payload.Message, func(code string, chat *entity.ChatMessage) {
		that.broadcast(code, actionReceiveMessage, chat)
	})
}

func (that *Server) broadcast(code, action string, payload any) {
	data, err := encodeMessage(action, payload)
	if err != nil {
		that.logger.Error("failed to encode broadcast", "roomCode", code, "error", err)
		return
	}

	that.hub.Broadcast(code, data)
}
