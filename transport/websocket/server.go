package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
	"github.com/rocketscienceinc/tictactoe-relay/internal/pkg"
)

const (
	defaultSendBuffer = 256
	defaultReadLimit  = 1 << 20
	shutdownTimeout   = 5 * time.Second
)

type uRoom interface {
	CreateRoom(ctx context.Context, connectionID, playerName string, onCreated func(code string)) (string, error)
	JoinRoom(ctx context.Context, connectionID, code, playerName string, onJoined func(room *entity.Room)) error
	MakeMove(ctx context.Context, connectionID, code string, cell int, onMoved func(update *entity.GameUpdate)) error
	SendMessage(ctx context.Context, connectionID, text string, onMessage func(code string, msg *entity.ChatMessage)) error
	Disconnect(ctx context.Context, connectionID string) (string, error)
}

type Options struct {
	SendBuffer     int
	ReadLimit      int64
	AllowedOrigins []string
	// StaticDir is served at / when set.
	StaticDir string
}

type Server struct {
	logger  *slog.Logger
	uRoom   uRoom
	hub     *Hub
	options Options

	upgrader websocket.Upgrader

	connections      map[string]*Client
	connectionsMutex sync.RWMutex

	handlers map[string]func(ctx context.Context, client *Client, message *Message) error
}

func New(logger *slog.Logger, uRoom uRoom, options Options) *Server {
	if options.SendBuffer <= 0 {
		options.SendBuffer = defaultSendBuffer
	}

	if options.ReadLimit <= 0 {
		options.ReadLimit = defaultReadLimit
	}

	server := &Server{
		logger:      logger.With("component", "websocket"),
		uRoom:       uRoom,
		hub:         NewHub(logger),
		options:     options,
		connections: make(map[string]*Client),

		handlers: make(map[string]func(context.Context, *Client, *Message) error),
	}

	server.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     server.checkOrigin,
	}

	server.handlers[actionCreateRoom] = server.handleCreateRoom
	server.handlers[actionJoinRoom] = server.handleJoinRoom
	server.handlers[actionMakeMove] = server.handleMakeMove
	server.handlers[actionSendMessage] = server.handleSendMessage

	return server
}

// Handler - routes /ws to the websocket endpoint.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.ServeWS(ctx, w, r)
	})

	if that.options.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(that.options.StaticDir)))
	}

	return mux
}

// Start - starts WebSocket server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down server", "error", err)
		}

		that.closeConnections()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// ServeWS - upgrades the connection and serves it until it closes.
func (that *Server) ServeWS(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "ServeWS")

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", "error", err)
		return
	}

	client := newClient(that, conn, pkg.GenerateConnectionID(), that.options.SendBuffer)
	that.register(client)

	log.Info("WebSocket connection established", "connectionID", client.ID)

	go client.writePump()
	client.readPump(ctx)

	that.disconnect(ctx, client)
}

// dispatch - decodes one inbound message and runs its handler.
func (that *Server) dispatch(ctx context.Context, client *Client, data []byte) {
	log := that.logger.With("method", "dispatch", "connectionID", client.ID)

	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		log.Warn("failed to unmarshal message", "error", err)
		return
	}

	handler, ok := that.handlers[message.Action]
	if !ok {
		log.Warn("unknown action", "action", message.Action)
		return
	}

	err := handler(ctx, client, &message)
	switch {
	case err == nil:
	case errors.Is(err, errMalformedPayload):
		log.Warn("dropped message", "action", message.Action, "error", err)
	case apperror.IsIgnored(err):
		log.Debug("action ignored", "action", message.Action, "reason", err)
	default:
		log.Info("request rejected", "action", message.Action, "error", err)
		client.sendError(err)
	}
}

func (that *Server) disconnect(ctx context.Context, client *Client) {
	log := that.logger.With("method", "disconnect", "connectionID", client.ID)

	client.Close()
	that.unregister(client)

	code, err := that.uRoom.Disconnect(context.WithoutCancel(ctx), client.ID)
	that.hub.Leave(client)

	if err != nil && !apperror.IsIgnored(err) {
		log.Error("failed to leave room", "error", err)
	}

	log.Info("WebSocket connection closed", "roomCode", code)
}

func (that *Server) register(client *Client) {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	that.connections[client.ID] = client
}

func (that *Server) unregister(client *Client) {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	delete(that.connections, client.ID)
}

func (that *Server) closeConnections() {
	that.connectionsMutex.RLock()
	defer that.connectionsMutex.RUnlock()

	for _, client := range that.connections {
		client.Close()
	}
}

// ConnectionCount - number of open websocket connections.
func (that *Server) ConnectionCount() int {
	that.connectionsMutex.RLock()
	defer that.connectionsMutex.RUnlock()

	return len(that.connections)
}

// checkOrigin allows every origin unless an allow list is configured.
func (that *Server) checkOrigin(req *http.Request) bool {
	if len(that.options.AllowedOrigins) == 0 {
		return true
	}

	origin := req.Header.Get("Origin")
	if origin == "" {
		return true
	}

	return slices.Contains(that.options.AllowedOrigins, origin)
}
