package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-relay/internal/registry"
)

type RoomHandler interface {
	StatsHandler(w http.ResponseWriter, r *http.Request)
	RoomHandler(w http.ResponseWriter, r *http.Request)
}

type StatsResponse struct {
	registry.Stats
	Connections int `json:"connections"`
}

type roomHandler struct {
	logger      *slog.Logger
	uRoom       uRoom
	connections connectionCounter
}

func NewRoomHandler(logger *slog.Logger, uRoom uRoom, connections connectionCounter) RoomHandler {
	return &roomHandler{
		logger:      logger,
		uRoom:       uRoom,
		connections: connections,
	}
}

func (that *roomHandler) StatsHandler(w http.ResponseWriter, _ *http.Request) {
	resp := StatsResponse{Stats: that.uRoom.Stats()}
	if that.connections != nil {
		resp.Connections = that.connections.ConnectionCount()
	}

	that.writeJSON(w, http.StatusOK, resp)
}

func (that *roomHandler) RoomHandler(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "RoomHandler")

	room, err := that.uRoom.GetRoom(r.PathValue("code"))
	switch {
	case errors.Is(err, apperror.ErrRoomNotFound):
		that.writeJSON(w, http.StatusNotFound, map[string]string{"error": "Room not found"})
		return
	case err != nil:
		log.Error("failed to get room", "error", err)
		that.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
		return
	}

	that.writeJSON(w, http.StatusOK, room)
}

func (that *roomHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}
