package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
	"github.com/rocketscienceinc/tictactoe-relay/internal/registry"
)

const shutdownTimeout = 5 * time.Second

type uRoom interface {
	GetRoom(code string) (*entity.Room, error)
	Stats() registry.Stats
}

type connectionCounter interface {
	ConnectionCount() int
}

type Server struct {
	logger *slog.Logger
	ping   PingHandler
	rooms  RoomHandler
}

func New(logger *slog.Logger, uRoom uRoom, connections connectionCounter) *Server {
	logger = logger.With("component", "rest")

	return &Server{
		logger: logger,
		ping:   NewPingHandler(),
		rooms:  NewRoomHandler(logger, uRoom, connections),
	}
}

// Handler - ops routes.
func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", that.ping.PingHandler)
	mux.HandleFunc("GET /stats", that.rooms.StatsHandler)
	mux.HandleFunc("GET /rooms/{code}", that.rooms.RoomHandler)

	return mux
}

// Start - starts HTTP server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
