package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/rocketscienceinc/buzzer-backend/internal/apperror"
	"github.com/rocketscienceinc/buzzer-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSession struct {
	mock.Mock
}

func (that *mockSession) RegisterPlayers(players []entity.Player) error {
	return that.Called(players).Error(0)
}

func (that *mockSession) LoadPack(pack entity.Pack) error {
	return that.Called(pack).Error(0)
}

func (that *mockSession) StartGame() error {
	return that.Called().Error(0)
}

func (that *mockSession) ConfigureHub(config entity.HubConfig) error {
	return that.Called(config).Error(0)
}

func (that *mockSession) PickFirstQuestionChooser(victimID int) error {
	return that.Called(victimID).Error(0)
}

func (that *mockSession) SelectQuestion(playerID, topicIndex, questionIndex int) error {
	return that.Called(playerID, topicIndex, questionIndex).Error(0)
}

func (that *mockSession) AllowAnswer() error {
	return that.Called().Error(0)
}

func (that *mockSession) Signal(signal entity.PlayerSignal) error {
	return that.Called(signal).Error(0)
}

func (that *mockSession) AnswerQuestion(correct bool) error {
	return that.Called(correct).Error(0)
}

func (that *mockSession) FinishQuestionPrematurely() error {
	return that.Called().Error(0)
}

func (that *mockSession) InitNextRound() error {
	return that.Called().Error(0)
}

func (that *mockSession) ResetGame() error {
	return that.Called().Error(0)
}

func (that *mockSession) Snapshot() entity.GameStateSnapshot {
	return that.Called().Get(0).(entity.GameStateSnapshot)
}

func newTestManager(session *mockSession, loader packLoader) *SessionManager {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	if loader == nil {
		loader = func(string) (entity.Pack, error) { return entity.Pack{}, errors.New("no packs here") }
	}

	return NewSessionManager(logger, session, loader, "pack.yml")
}

func TestSessionManager_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("Select question is decoded and forwarded", func(t *testing.T) {
		// Given: a session in ChooseQuestion
		session := &mockSession{}
		session.On("SelectQuestion", 2, 1, 3).Return(nil)
		session.On("Snapshot").Return(entity.GameStateSnapshot{State: entity.StateDisplayQuestion})

		manager := newTestManager(session, nil)

		// When: the chooser selects a question
		snapshot, err := manager.Execute(ctx, CommandSelectQuestion, json.RawMessage(`{"playerId":2,"topicIndex":1,"questionIndex":3}`))

		// Then: the session receives the decoded call
		require.NoError(t, err)
		assert.Equal(t, entity.StateDisplayQuestion, snapshot.State)
		session.AssertExpectations(t)
	})

	t.Run("Unknown commands are rejected", func(t *testing.T) {
		session := &mockSession{}
		session.On("Snapshot").Return(entity.GameStateSnapshot{State: entity.StateChooseQuestion})

		manager := newTestManager(session, nil)

		_, err := manager.Execute(ctx, "game:turn", nil)

		require.ErrorIs(t, err, apperror.ErrUnknownCommand)
		session.AssertNotCalled(t, "SelectQuestion", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Session errors are returned with the state unchanged", func(t *testing.T) {
		session := &mockSession{}
		session.On("SelectQuestion", 1, 0, 0).Return(apperror.ErrWrongTurn)
		session.On("Snapshot").Return(entity.GameStateSnapshot{State: entity.StateChooseQuestion})

		manager := newTestManager(session, nil)

		snapshot, err := manager.Execute(ctx, CommandSelectQuestion, json.RawMessage(`{"playerId":1}`))

		require.ErrorIs(t, err, apperror.ErrWrongTurn)
		assert.Equal(t, entity.StateChooseQuestion, snapshot.State)
	})

	t.Run("Malformed payloads are rejected before reaching the session", func(t *testing.T) {
		session := &mockSession{}
		session.On("Snapshot").Return(entity.GameStateSnapshot{})

		manager := newTestManager(session, nil)

		_, err := manager.Execute(ctx, CommandRegisterPlayers, json.RawMessage(`{"players":"nope"}`))
		require.ErrorIs(t, err, apperror.ErrInvalidPayload)

		_, err = manager.Execute(ctx, CommandAnswerQuestion, json.RawMessage(`{}`))
		require.ErrorIs(t, err, apperror.ErrInvalidPayload)

		_, err = manager.Execute(ctx, CommandSignal, nil)
		require.ErrorIs(t, err, apperror.ErrInvalidPayload)

		session.AssertNotCalled(t, "RegisterPlayers", mock.Anything)
		session.AssertNotCalled(t, "AnswerQuestion", mock.Anything)
	})

	t.Run("Commands without payload are forwarded", func(t *testing.T) {
		session := &mockSession{}
		for _, method := range []string{"StartGame", "AllowAnswer", "FinishQuestionPrematurely", "InitNextRound", "ResetGame"} {
			session.On(method).Return(nil).Once()
		}
		session.On("PickFirstQuestionChooser", 0).Return(nil)
		session.On("Snapshot").Return(entity.GameStateSnapshot{})

		manager := newTestManager(session, nil)

		for _, command := range []string{
			CommandStartGame, CommandPickFirstQuestionChooser, CommandAllowAnswer,
			CommandFinishQuestionPrematurely, CommandInitNextRound, CommandResetGame,
		} {
			_, err := manager.Execute(ctx, command, nil)
			require.NoError(t, err, command)
		}

		session.AssertExpectations(t)
	})

	t.Run("Hub signals and judgements are decoded", func(t *testing.T) {
		session := &mockSession{}
		session.On("Signal", entity.PlayerSignal{PlayerID: 3, Pressed: true, Timestamp: 1500}).Return(nil)
		session.On("AnswerQuestion", false).Return(nil)
		session.On("ConfigureHub", mock.MatchedBy(func(config entity.HubConfig) bool {
			return config.RadioChannel == 4
		})).Return(nil)
		session.On("Snapshot").Return(entity.GameStateSnapshot{})

		manager := newTestManager(session, nil)

		_, err := manager.Execute(ctx, CommandSignal, json.RawMessage(`{"playerId":3,"pressed":true,"timestampMonotonic":1500}`))
		require.NoError(t, err)
		_, err = manager.Execute(ctx, CommandAnswerQuestion, json.RawMessage(`{"correct":false}`))
		require.NoError(t, err)
		_, err = manager.Execute(ctx, CommandConfigureHub, json.RawMessage(`{"hubPort":"COM3","radioChannel":4}`))
		require.NoError(t, err)

		session.AssertExpectations(t)
	})

	t.Run("Canceled context stops the command", func(t *testing.T) {
		session := &mockSession{}
		manager := newTestManager(session, nil)

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := manager.Execute(canceled, CommandStartGame, nil)

		require.ErrorIs(t, err, context.Canceled)
		session.AssertNotCalled(t, "StartGame")
	})
}

func TestSessionManager_LoadPack(t *testing.T) {
	t.Run("Pack path falls back to the configured one", func(t *testing.T) {
		// Given: a loader that records the requested path
		var requested []string
		loader := func(path string) (entity.Pack, error) {
			requested = append(requested, path)
			return entity.Pack{Name: path, Rounds: []entity.Round{{Name: "R"}}}, nil
		}

		session := &mockSession{}
		session.On("LoadPack", mock.AnythingOfType("entity.Pack")).Return(nil)
		session.On("Snapshot").Return(entity.GameStateSnapshot{})

		manager := newTestManager(session, loader)

		// When: the pack is loaded without and with a path
		require.NoError(t, manager.LoadDefaultPack())
		_, err := manager.Execute(context.Background(), CommandLoadPack, json.RawMessage(`{"path":"friday.yml"}`))

		// Then: both packs reach the session
		require.NoError(t, err)
		assert.Equal(t, []string{"pack.yml", "friday.yml"}, requested)
		session.AssertNumberOfCalls(t, "LoadPack", 2)
	})

	t.Run("Loader errors are returned", func(t *testing.T) {
		session := &mockSession{}
		session.On("Snapshot").Return(entity.GameStateSnapshot{})

		manager := newTestManager(session, nil)

		_, err := manager.Execute(context.Background(), CommandLoadPack, nil)

		require.ErrorContains(t, err, "no packs here")
		session.AssertNotCalled(t, "LoadPack", mock.Anything)
	})
}
