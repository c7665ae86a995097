package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/buzzer-backend/internal/entity"
	"github.com/rocketscienceinc/buzzer-backend/internal/publisher"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 64
)

type gateway interface {
	Execute(ctx context.Context, command string, payload json.RawMessage) (entity.GameStateSnapshot, error)
}

type latestEvents interface {
	Latest() []publisher.Event
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

type Server struct {
	logger  *slog.Logger
	gateway gateway
	events  latestEvents

	upgrader websocket.Upgrader

	clientsMutex sync.RWMutex
	clients      map[*client]struct{}
}

func New(logger *slog.Logger, gateway gateway, events latestEvents) *Server {
	return &Server{
		logger:  logger.With("component", "websocket"),
		gateway: gateway,
		events:  events,

		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},

		clients: make(map[*client]struct{}),
	}
}

// Handler serves the /ws endpoint.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveWebSocket(ctx, w, r)
	})

	return mux
}

// Start - starts WebSocket server and stops it when ctx is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     that.Handler(ctx),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Deliver broadcasts an event to every connected client. A client whose
// buffer is full misses the event and catches up from the next snapshot.
func (that *Server) Deliver(_ context.Context, event publisher.Event) error {
	data, err := encode(event.Name, event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Name, err)
	}

	that.clientsMutex.RLock()
	clients := make([]*client, 0, len(that.clients))
	for c := range that.clients {
		clients = append(clients, c)
	}
	that.clientsMutex.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			that.logger.Warn("client buffer full, event dropped", "event", event.Name, "seq", event.Seq, "remote", c.conn.RemoteAddr().String())
		}
	}

	return nil
}

func (that *Server) ClientCount() int {
	that.clientsMutex.RLock()
	defer that.clientsMutex.RUnlock()

	return len(that.clients)
}

func (that *Server) serveWebSocket(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveWebSocket")

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}

	// registered before reading the cache, so an event published in between is
	// broadcast to it; a duplicate carries the same seq and is harmless
	that.clientsMutex.Lock()
	that.clients[c] = struct{}{}
	that.clientsMutex.Unlock()

	// a late client renders from the latest snapshot of every event
	for _, event := range that.events.Latest() {
		data, err := encode(event.Name, event)
		if err != nil {
			continue
		}

		select {
		case c.send <- data:
		default:
		}
	}

	log.Info("WebSocket connection established", "remote", conn.RemoteAddr().String())

	go that.writeMessages(c)
	that.readMessages(ctx, c)

	that.clientsMutex.Lock()
	delete(that.clients, c)
	that.clientsMutex.Unlock()

	close(c.done)
	log.Info("WebSocket connection closed", "remote", conn.RemoteAddr().String())
}

// readMessages - processes commands from the client until it disconnects.
func (that *Server) readMessages(ctx context.Context, c *client) {
	log := that.logger.With("method", "readMessages")

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("error reading message", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Warn("failed to unmarshal message", "error", err)
			that.reply(c, actionError, ResponsePayload{Error: err.Error(), Code: "InvalidMessage"})
			continue
		}

		snapshot, err := that.gateway.Execute(ctx, message.Action, message.Payload)

		response := ResponsePayload{State: &snapshot}
		if err != nil {
			response.Error = err.Error()
			response.Code = errorCode(err)
		}

		that.reply(c, message.Action, response)
	}
}

func (that *Server) reply(c *client, action string, payload ResponsePayload) {
	data, err := encode(action, payload)
	if err != nil {
		that.logger.Error("failed to marshal response", "action", action, "error", err)
		return
	}

	select {
	case c.send <- data:
	case <-c.done:
	case <-time.After(writeWait):
		that.logger.Warn("response dropped, client too slow", "action", action)
	}
}

// writeMessages is the only writer of the connection.
func (that *Server) writeMessages(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				that.logger.Debug("failed to write message", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
