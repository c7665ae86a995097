package redis

import (
	"context"
	"testing"
	"time"

	"github.com/rocketscienceinc/buzzer-backend/internal/entity"
	"github.com/rocketscienceinc/buzzer-backend/internal/publisher"
	"github.com/rocketscienceinc/buzzer-backend/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Deliver(t *testing.T) {
	t.Run("Delivered events reach subscribers", func(t *testing.T) {
		ctx, st := suite.New(t)
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		client := New(st.Storage, "")

		// Given: a subscriber on the events channel
		events, err := client.Subscribe(ctx)
		require.NoError(t, err)

		// When: an event is delivered
		err = client.Deliver(ctx, publisher.Event{
			Name:    publisher.EventGameState,
			Seq:     7,
			Payload: entity.GameStateSnapshot{State: entity.StateChooseQuestion},
		})
		require.NoError(t, err)

		// Then: the subscriber receives it
		select {
		case event := <-events:
			assert.Equal(t, publisher.EventGameState, event.Name)
			assert.Equal(t, uint64(7), event.Seq)
		case <-time.After(5 * time.Second):
			t.Fatal("event was not received")
		}
	})
}
