package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client is one websocket connection. Its ID is the player's connection id.
type Client struct {
	ID string

	server *Server
	conn   *websocket.Conn
	send   chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(server *Server, conn *websocket.Conn, id string, buffer int) *Client {
	return &Client{
		ID:     id,
		server: server,
		conn:   conn,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

// enqueue reports false when the message was dropped.
func (that *Client) enqueue(data []byte) bool {
	select {
	case <-that.done:
		return false
	default:
	}

	select {
	case that.send <- data:
		return true
	default:
		return false
	}
}

func (that *Client) sendAction(action string, payload any) {
	log := that.server.logger.With("method", "sendAction", "connectionID", that.ID, "action", action)

	data, err := encodeMessage(action, payload)
	if err != nil {
		log.Error("failed to encode message", "error", err)
		return
	}

	if !that.enqueue(data) {
		log.Warn("send buffer full, message dropped")
	}
}

func (that *Client) sendError(err error) {
	that.sendAction(actionError, errorText(err))
}

// Close stops the write loop, which closes the connection.
func (that *Client) Close() {
	that.closeOnce.Do(func() {
		close(that.done)
	})
}

// readPump dispatches inbound messages until the connection fails or closes.
func (that *Client) readPump(ctx context.Context) {
	log := that.server.logger.With("method", "readPump", "connectionID", that.ID)

	that.conn.SetReadLimit(that.server.options.ReadLimit)
	if err := that.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Error("failed to set read deadline", "error", err)
	}

	that.conn.SetPongHandler(func(string) error {
		return that.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := that.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn("connection closed unexpectedly", "error", err)
			}
			return
		}

		that.server.dispatch(ctx, that, data)
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (that *Client) writePump() {
	log := that.server.logger.With("method", "writePump", "connectionID", that.ID)

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = that.conn.Close()
	}()

	for {
		select {
		case data := <-that.send:
			if err := that.write(websocket.TextMessage, data); err != nil {
				log.Warn("failed to write message", "error", err)
				that.Close()
				return
			}

		case <-ticker.C:
			if err := that.write(websocket.PingMessage, nil); err != nil {
				that.Close()
				return
			}

		case <-that.done:
			that.flush()
			_ = that.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes whatever is still queued.
func (that *Client) flush() {
	for {
		select {
		case data := <-that.send:
			if err := that.write(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (that *Client) write(messageType int, data []byte) error {
	if err := that.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return that.conn.WriteMessage(messageType, data)
}

// errorText is the message shown to the player for a failed request.
func errorText(err error) string {
	switch {
	case errors.Is(err, apperror.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, apperror.ErrRoomFull):
		return "Room is full"
	case errors.Is(err, apperror.ErrAlreadyInRoom):
		return "You are already in this room"
	case errors.Is(err, apperror.ErrRoomCodeExhausted):
		return "Could not create a room, please try again"
	default:
		return "Internal server error"
	}
}
