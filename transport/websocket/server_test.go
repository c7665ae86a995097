package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/buzzer-backend/internal/apperror"
	"github.com/rocketscienceinc/buzzer-backend/internal/entity"
	"github.com/rocketscienceinc/buzzer-backend/internal/pack"
	"github.com/rocketscienceinc/buzzer-backend/internal/publisher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu       sync.Mutex
	commands []string
	err      error
}

func (that *fakeGateway) Execute(_ context.Context, command string, _ json.RawMessage) (entity.GameStateSnapshot, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.commands = append(that.commands, command)

	return entity.GameStateSnapshot{State: entity.StateChooseQuestion, Version: uint64(len(that.commands))}, that.err
}

type fakeEvents []publisher.Event

func (that fakeEvents) Latest() []publisher.Event {
	return that
}

// publishingEvents delivers an event while the cache is being read, as a
// publish racing a connecting client would.
type publishingEvents struct {
	server *Server
	event  publisher.Event
}

func (that *publishingEvents) Latest() []publisher.Event {
	_ = that.server.Deliver(context.Background(), that.event)

	return nil
}

func newTestServer(t *testing.T, gateway gateway, events latestEvents) (*Server, *websocket.Conn) {
	t.Helper()

	server := New(slog.New(slog.NewJSONHandler(io.Discard, nil)), gateway, events)

	return server, dial(t, server)
}

func dial(t *testing.T, server *Server) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	httpServer := httptest.NewServer(server.Handler(ctx))
	t.Cleanup(httpServer.Close)

	url := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var message Message
	require.NoError(t, conn.ReadJSON(&message))

	return message
}

func TestServer_Commands(t *testing.T) {
	t.Run("Command response carries the game state", func(t *testing.T) {
		// Given: a connected client
		gateway := &fakeGateway{}
		_, conn := newTestServer(t, gateway, fakeEvents{})

		// When: a command is sent
		require.NoError(t, conn.WriteJSON(Message{Action: "allowAnswer"}))

		// Then: the response echoes the action with the new state
		message := readMessage(t, conn)
		assert.Equal(t, "allowAnswer", message.Action)

		var response ResponsePayload
		require.NoError(t, json.Unmarshal(message.Payload, &response))
		require.NotNil(t, response.State)
		assert.Equal(t, entity.StateChooseQuestion, response.State.State)
		assert.Empty(t, response.Error)
	})

	t.Run("Failures are returned with a typed code", func(t *testing.T) {
		gateway := &fakeGateway{err: fmt.Errorf("failed to execute selectQuestion: %w", apperror.ErrWrongTurn)}
		_, conn := newTestServer(t, gateway, fakeEvents{})

		require.NoError(t, conn.WriteJSON(Message{Action: "selectQuestion", Payload: json.RawMessage(`{"playerId":2}`)}))

		var response ResponsePayload
		require.NoError(t, json.Unmarshal(readMessage(t, conn).Payload, &response))
		assert.Equal(t, "WrongTurn", response.Code)
	})

	t.Run("Malformed messages get an error reply", func(t *testing.T) {
		gateway := &fakeGateway{}
		_, conn := newTestServer(t, gateway, fakeEvents{})

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

		message := readMessage(t, conn)
		assert.Equal(t, actionError, message.Action)

		gateway.mu.Lock()
		defer gateway.mu.Unlock()
		assert.Empty(t, gateway.commands)
	})
}

func TestServer_Deliver(t *testing.T) {
	t.Run("Late clients receive the latest snapshots first", func(t *testing.T) {
		events := fakeEvents{
			{Name: publisher.EventPlayers, Seq: 4, Payload: []entity.Player{{ID: 1, Name: "Alice"}}},
			{Name: publisher.EventGameState, Seq: 5, Payload: entity.GameStateSnapshot{State: entity.StateChooseQuestion}},
		}
		_, conn := newTestServer(t, &fakeGateway{}, events)

		assert.Equal(t, publisher.EventPlayers, readMessage(t, conn).Action)
		assert.Equal(t, publisher.EventGameState, readMessage(t, conn).Action)
	})

	t.Run("Events published while a client connects reach it", func(t *testing.T) {
		// Given: an event that is published while the new client reads the cache
		events := &publishingEvents{event: publisher.Event{Name: publisher.EventQuestion, Seq: 7, Payload: entity.Question{Price: 100}}}
		server := New(slog.New(slog.NewJSONHandler(io.Discard, nil)), &fakeGateway{}, events)
		events.server = server

		// When: the client connects
		conn := dial(t, server)

		// Then: the event is not lost
		assert.Equal(t, publisher.EventQuestion, readMessage(t, conn).Action)
	})

	t.Run("Events are broadcast to connected clients", func(t *testing.T) {
		// Given: a connected client
		server, conn := newTestServer(t, &fakeGateway{}, fakeEvents{})
		require.Eventually(t, func() bool { return server.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

		// When: an event is delivered
		err := server.Deliver(context.Background(), publisher.Event{Name: publisher.EventRoundStats, Seq: 9, Payload: entity.RoundStats{RoundName: "First"}})
		require.NoError(t, err)

		// Then: the client receives it
		message := readMessage(t, conn)
		assert.Equal(t, publisher.EventRoundStats, message.Action)

		var event struct {
			Seq     uint64            `json:"seq"`
			Payload entity.RoundStats `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(message.Payload, &event))
		assert.Equal(t, uint64(9), event.Seq)
		assert.Equal(t, "First", event.Payload.RoundName)
	})
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "SessionHalted", errorCode(fmt.Errorf("%w: %w", apperror.ErrSessionHalted, apperror.ErrInvariantViolation)))
	assert.Equal(t, "AlreadyUsed", errorCode(fmt.Errorf("wrapped: %w", apperror.ErrAlreadyUsed)))
	assert.Equal(t, "PackOutsideLibrary", errorCode(fmt.Errorf("failed to load pack: %w", pack.ErrOutsideLibrary)))
	assert.Equal(t, "Internal", errorCode(io.EOF))
}
