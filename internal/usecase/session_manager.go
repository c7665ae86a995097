package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/buzzer-backend/internal/apperror"
	"github.com/rocketscienceinc/buzzer-backend/internal/entity"
)

// Command names accepted by the gateway.
const (
	CommandRegisterPlayers           = "registerPlayers"
	CommandLoadPack                  = "loadPack"
	CommandStartGame                 = "startGame"
	CommandConfigureHub              = "configureHub"
	CommandPickFirstQuestionChooser  = "pickFirstQuestionChooser"
	CommandSelectQuestion            = "selectQuestion"
	CommandAllowAnswer               = "allowAnswer"
	CommandAnswerQuestion            = "answerQuestion"
	CommandFinishQuestionPrematurely = "finishQuestionPrematurely"
	CommandInitNextRound             = "initNextRound"
	CommandResetGame                 = "resetGame"
	CommandSignal                    = "signal"
)

type session interface {
	RegisterPlayers(players []entity.Player) error
	LoadPack(pack entity.Pack) error
	StartGame() error
	ConfigureHub(config entity.HubConfig) error
	PickFirstQuestionChooser(victimID int) error
	SelectQuestion(playerID, topicIndex, questionIndex int) error
	AllowAnswer() error
	Signal(signal entity.PlayerSignal) error
	AnswerQuestion(correct bool) error
	FinishQuestionPrematurely() error
	InitNextRound() error
	ResetGame() error
	Snapshot() entity.GameStateSnapshot
}

type packLoader func(path string) (entity.Pack, error)

type RegisterPlayersPayload struct {
	Players []entity.Player `json:"players"`
}

// LoadPackPayload names a pack relative to the pack directory. Empty means the default pack.
type LoadPackPayload struct {
	Path string `json:"path"`
}

type PickFirstQuestionChooserPayload struct {
	VictimID int `json:"victimId"`
}

type SelectQuestionPayload struct {
	PlayerID      int `json:"playerId"`
	TopicIndex    int `json:"topicIndex"`
	QuestionIndex int `json:"questionIndex"`
}

type AnswerQuestionPayload struct {
	Correct *bool `json:"correct"`
}

// SessionManager is the command gateway: it decodes named commands and
// forwards them to the session.
type SessionManager struct {
	logger      *slog.Logger
	session     session
	loadPack    packLoader
	defaultPack string

	handlers map[string]func(payload json.RawMessage) error
}

func NewSessionManager(logger *slog.Logger, session session, loadPack packLoader, defaultPack string) *SessionManager {
	manager := &SessionManager{
		logger:      logger.With("component", "session_manager"),
		session:     session,
		loadPack:    loadPack,
		defaultPack: defaultPack,

		handlers: make(map[string]func(json.RawMessage) error),
	}

	manager.handlers[CommandRegisterPlayers] = manager.registerPlayers
	manager.handlers[CommandLoadPack] = manager.loadPackFile
	manager.handlers[CommandStartGame] = noPayload(session.StartGame)
	manager.handlers[CommandConfigureHub] = manager.configureHub
	manager.handlers[CommandPickFirstQuestionChooser] = manager.pickFirstQuestionChooser
	manager.handlers[CommandSelectQuestion] = manager.selectQuestion
	manager.handlers[CommandAllowAnswer] = noPayload(session.AllowAnswer)
	manager.handlers[CommandAnswerQuestion] = manager.answerQuestion
	manager.handlers[CommandFinishQuestionPrematurely] = noPayload(session.FinishQuestionPrematurely)
	manager.handlers[CommandInitNextRound] = noPayload(session.InitNextRound)
	manager.handlers[CommandResetGame] = noPayload(session.ResetGame)
	manager.handlers[CommandSignal] = manager.signal

	return manager
}

// Execute runs a named command and returns the game state after it.
// Unknown command names are rejected with ErrUnknownCommand.
func (that *SessionManager) Execute(ctx context.Context, command string, payload json.RawMessage) (entity.GameStateSnapshot, error) {
	log := that.logger.With("method", "Execute", "command", command)

	if err := ctx.Err(); err != nil {
		return entity.GameStateSnapshot{}, fmt.Errorf("failed to execute %s: %w", command, err)
	}

	handler, ok := that.handlers[command]
	if !ok {
		log.Warn("unknown command")
		return that.session.Snapshot(), fmt.Errorf("%w: %q", apperror.ErrUnknownCommand, command)
	}

	if err := handler(payload); err != nil {
		log.Debug("command failed", "error", err)
		return that.session.Snapshot(), fmt.Errorf("failed to execute %s: %w", command, err)
	}

	return that.session.Snapshot(), nil
}

// LoadDefaultPack loads the configured pack file into the session.
func (that *SessionManager) LoadDefaultPack() error {
	return that.loadPackFile(nil)
}

func (that *SessionManager) registerPlayers(payload json.RawMessage) error {
	var request RegisterPlayersPayload
	if err := decode(payload, &request); err != nil {
		return err
	}

	return that.session.RegisterPlayers(request.Players)
}

func (that *SessionManager) loadPackFile(payload json.RawMessage) error {
	var request LoadPackPayload
	if len(payload) > 0 {
		if err := decode(payload, &request); err != nil {
			return err
		}
	}

	path := request.Path
	if path == "" {
		path = that.defaultPack
	}

	pack, err := that.loadPack(path)
	if err != nil {
		return fmt.Errorf("failed to load pack: %w", err)
	}

	return that.session.LoadPack(pack)
}

func (that *SessionManager) configureHub(payload json.RawMessage) error {
	var request entity.HubConfig
	if err := decode(payload, &request); err != nil {
		return err
	}

	return that.session.ConfigureHub(request)
}

func (that *SessionManager) pickFirstQuestionChooser(payload json.RawMessage) error {
	var request PickFirstQuestionChooserPayload
	if len(payload) > 0 {
		if err := decode(payload, &request); err != nil {
			return err
		}
	}

	return that.session.PickFirstQuestionChooser(request.VictimID)
}

func (that *SessionManager) selectQuestion(payload json.RawMessage) error {
	var request SelectQuestionPayload
	if err := decode(payload, &request); err != nil {
		return err
	}

	return that.session.SelectQuestion(request.PlayerID, request.TopicIndex, request.QuestionIndex)
}

func (that *SessionManager) answerQuestion(payload json.RawMessage) error {
	var request AnswerQuestionPayload
	if err := decode(payload, &request); err != nil {
		return err
	}

	if request.Correct == nil {
		return fmt.Errorf("%w: correct is required", apperror.ErrInvalidPayload)
	}

	return that.session.AnswerQuestion(*request.Correct)
}

func (that *SessionManager) signal(payload json.RawMessage) error {
	var request entity.PlayerSignal
	if err := decode(payload, &request); err != nil {
		return err
	}

	return that.session.Signal(request)
}

func noPayload(command func() error) func(json.RawMessage) error {
	return func(json.RawMessage) error {
		return command()
	}
}

func decode(payload json.RawMessage, target any) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: payload is required", apperror.ErrInvalidPayload)
	}

	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrInvalidPayload, err)
	}

	return nil
}
