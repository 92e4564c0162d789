package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-relay/internal/config"
	"github.com/rocketscienceinc/tictactoe-relay/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-relay/internal/registry"
	"github.com/rocketscienceinc/tictactoe-relay/internal/repository"
	"github.com/rocketscienceinc/tictactoe-relay/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-relay/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-relay/transport/rest"
	"github.com/rocketscienceinc/tictactoe-relay/transport/websocket"
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	// the mirror stays a nil interface when Redis is off
	var roomRepo repository.RoomRepository

	if conf.Redis.Enabled {
		redisStorage, err := storage.NewRedis(ctx, conf.Redis.GetRedisAddr(), conf.Redis.Timeout)
		if err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}

		defer func() {
			if err = redisStorage.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()

		roomRepo = repository.NewRoomRepository(redisStorage, conf.Redis.TTL)
		log.Info("Mirroring rooms to Redis", "addr", conf.Redis.GetRedisAddr())
	}

	rooms := registry.New(pkg.GenerateRoomCode, conf.Room.CodeAttempts)
	roomUseCase := usecase.NewRoomManager(logger, rooms, roomRepo, conf.Redis.Timeout)

	wsServer := websocket.New(logger, roomUseCase, websocket.Options{
		SendBuffer:     conf.WebSocket.SendBuffer,
		ReadLimit:      conf.WebSocket.ReadLimit,
		AllowedOrigins: conf.WebSocket.AllowedOrigins,
		StaticDir:      conf.WebSocket.StaticDir,
	})
	restServer := rest.New(logger, roomUseCase, wsServer)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := restServer.Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.Port)
		if wsErr := wsServer.Start(ctx, conf.Port); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err := <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err := <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
