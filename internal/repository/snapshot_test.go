package repository

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rocketscienceinc/buzzer-backend/internal/entity"
	"github.com/rocketscienceinc/buzzer-backend/internal/publisher"
	"github.com/rocketscienceinc/buzzer-backend/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gameStateEvent(seq uint64, state entity.GameState) publisher.Event {
	return publisher.Event{
		Name:        publisher.EventGameState,
		Seq:         seq,
		Payload:     entity.GameStateSnapshot{State: state, Version: seq},
		PublishedAt: time.Now().UTC(),
	}
}

func TestSnapshotRepository_Save(t *testing.T) {
	t.Run("Latest snapshot replaces the previous one", func(t *testing.T) {
		ctx, st := suite.New(t)

		snapshotRepo := NewSnapshotRepository(st.Storage)

		// Given: two GameState events
		require.NoError(t, snapshotRepo.Save(ctx, gameStateEvent(1, entity.StateSetupAndLoading)))

		// When: the newer one is saved
		err := snapshotRepo.Save(ctx, gameStateEvent(2, entity.StateChooseQuestion))

		// Then: only the newer one is kept
		require.NoError(t, err)

		snapshot, err := snapshotRepo.GetByName(ctx, publisher.EventGameState)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), snapshot.Seq)

		var state entity.GameStateSnapshot
		require.NoError(t, json.Unmarshal(snapshot.Payload, &state))
		assert.Equal(t, entity.StateChooseQuestion, state.State)
	})
}

func TestSnapshotRepository_GetByName(t *testing.T) {
	t.Run("GetByName_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)

		snapshotRepo := NewSnapshotRepository(st.Storage)

		// When: GetByName is called for a name never published
		snapshot, err := snapshotRepo.GetByName(ctx, publisher.EventFinalResults)

		// Then: ErrSnapshotNotFound is returned
		require.ErrorIs(t, err, ErrSnapshotNotFound)
		assert.Nil(t, snapshot)
	})
}

func TestSnapshotRepository_GetAll(t *testing.T) {
	t.Run("Snapshots come back in publish order", func(t *testing.T) {
		ctx, st := suite.New(t)

		snapshotRepo := NewSnapshotRepository(st.Storage)

		// Given: three events of different names
		players := publisher.Event{Name: publisher.EventPlayers, Seq: 3, Payload: []entity.Player{{ID: 1, Name: "Alice"}}}
		round := publisher.Event{Name: publisher.EventRound, Seq: 1, Payload: entity.Round{Name: "First"}}
		require.NoError(t, snapshotRepo.Save(ctx, players))
		require.NoError(t, snapshotRepo.Save(ctx, round))
		require.NoError(t, snapshotRepo.Save(ctx, gameStateEvent(2, entity.StatePickFirstQuestionChooser)))

		// When
		snapshots, err := snapshotRepo.GetAll(ctx)

		// Then
		require.NoError(t, err)
		require.Len(t, snapshots, 3)
		assert.Equal(t, publisher.EventRound, snapshots[0].Name)
		assert.Equal(t, publisher.EventGameState, snapshots[1].Name)
		assert.Equal(t, publisher.EventPlayers, snapshots[2].Name)
	})

	t.Run("DeleteAll empties the store", func(t *testing.T) {
		ctx, st := suite.New(t)

		snapshotRepo := NewSnapshotRepository(st.Storage)
		require.NoError(t, snapshotRepo.Save(ctx, gameStateEvent(1, entity.StateSetupAndLoading)))

		require.NoError(t, snapshotRepo.DeleteAll(ctx))

		snapshots, err := snapshotRepo.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, snapshots)
	})
}
