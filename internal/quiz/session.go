// Package quiz implements the game session orchestrator. Session owns the
// authoritative game state, is its single writer and serializes every command
// and arbitration result behind one mutex.
package quiz

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/buzzer-backend/internal/apperror"
	"github.com/rocketscienceinc/buzzer-backend/internal/buzz"
	"github.com/rocketscienceinc/buzzer-backend/internal/catalog"
	"github.com/rocketscienceinc/buzzer-backend/internal/entity"
	"github.com/rocketscienceinc/buzzer-backend/internal/publisher"
	"github.com/rocketscienceinc/buzzer-backend/internal/registry"
)

type roster interface {
	Register(player entity.Player) (int, error)
	SetState(id int, state entity.PlayerState) error
	AdjustScore(id, delta int) error
	Get(id int) (entity.Player, error)
	Snapshot() []entity.Player
	Len() int
	ResetProgress()
	Clear()
}

type questions interface {
	SetRounds(rounds []entity.Round)
	Rewind()
	LoadNextRound() (entity.Round, error)
	SelectQuestion(topicIndex, questionIndex int) (entity.Question, error)
	IsRoundComplete() bool
	HasNextRound() bool
	Round() entity.Round
	RoundIndex() int
}

type arbiter interface {
	Open(eligible []int) (buzz.Result, bool)
	Submit(signal entity.PlayerSignal) error
	Cancel()
}

// Publisher is the one-way publish channel. Publish must not block.
type Publisher interface {
	Publish(name string, payload any)
}

type Settings struct {
	ArbitrationTimeout time.Duration
	BuzzSettle         time.Duration
	MinPlayers         int
	EliminateNegative  bool
}

type Option func(*Session)

// WithRegistry replaces the player registry.
func WithRegistry(players roster) Option {
	return func(that *Session) {
		that.players = players
	}
}

// WithBuzzClock sets the monotonic clock used to stamp buzz receipts.
func WithBuzzClock(clock buzz.Clock) Option {
	return func(that *Session) {
		that.buzzClock = clock
	}
}

// WithClock sets the wall clock used for round timing.
func WithClock(now func() time.Time) Option {
	return func(that *Session) {
		that.now = now
	}
}

// WithSessionID sets the generator of game ids stamped at start.
func WithSessionID(newID func() string) Option {
	return func(that *Session) {
		that.newID = newID
	}
}

type Session struct {
	logger    *slog.Logger
	settings  Settings
	publisher Publisher
	players   roster
	catalog   questions
	arbiter   arbiter
	buzzClock buzz.Clock
	now       func() time.Time
	newID     func() string

	mu             sync.Mutex
	state          entity.GameState
	version        uint64
	sessionID      string
	packInfo       *entity.PackInfo
	chooserID      int
	activePlayerID int
	window         uint64
	question       *entity.Question
	attempts       []entity.AnswerAttempt
	played         map[entity.QuestionType]int
	roundStartedAt time.Time
	roundStats     []entity.RoundStats
	finalResult    *entity.FinalResult
	diagnostic     *entity.Diagnostic
}

func NewSession(logger *slog.Logger, settings Settings, publisher Publisher, opts ...Option) *Session {
	if settings.MinPlayers < 1 {
		settings.MinPlayers = 1
	}

	session := &Session{
		logger:    logger.With("component", "quiz"),
		settings:  settings,
		publisher: publisher,
		players:   registry.New(),
		catalog:   catalog.New(nil),
		now:       time.Now,
		newID:     uuid.NewString,
		state:     entity.StateSetupAndLoading,
		played:    make(map[entity.QuestionType]int),
	}

	for _, opt := range opts {
		opt(session)
	}

	buzzOpts := []buzz.Option{buzz.WithSettle(settings.BuzzSettle)}
	if session.buzzClock != nil {
		buzzOpts = append(buzzOpts, buzz.WithClock(session.buzzClock))
	}
	session.arbiter = buzz.New(logger, settings.ArbitrationTimeout, session.onArbitration, buzzOpts...)

	return session
}

// Snapshot returns the current top-level state.
func (that *Session) Snapshot() entity.GameStateSnapshot {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.snapshot()
}

func (that *Session) State() entity.GameState {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.state
}

func (that *Session) Players() []entity.Player {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.players.Snapshot()
}

// CurrentQuestion returns the question in play, if any.
func (that *Session) CurrentQuestion() (entity.Question, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.question == nil {
		return entity.Question{}, false
	}

	return that.question.Clone(), true
}

func (that *Session) Round() entity.Round {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.catalog.Round()
}

// RoundStats returns the stats of every finished round of the current game.
func (that *Session) RoundStats() []entity.RoundStats {
	that.mu.Lock()
	defer that.mu.Unlock()

	return slices.Clone(that.roundStats)
}

func (that *Session) FinalResult() (entity.FinalResult, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.finalResult == nil {
		return entity.FinalResult{}, false
	}

	return *that.finalResult, true
}

// Diagnostic returns the snapshot captured when the session halted.
func (that *Session) Diagnostic() (entity.Diagnostic, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.diagnostic == nil {
		return entity.Diagnostic{}, false
	}

	return *that.diagnostic, true
}

func (that *Session) snapshot() entity.GameStateSnapshot {
	snapshot := entity.GameStateSnapshot{
		SessionID:      that.sessionID,
		State:          that.state,
		Version:        that.version,
		RoundIndex:     that.catalog.RoundIndex(),
		ActivePlayerID: that.activePlayerID,
		AnswerAllowed:  that.state == entity.StateWaitingForAnswerRequests,
	}

	if that.diagnostic != nil {
		snapshot.Halted = true
		snapshot.Diagnostic = that.diagnostic.Reason
	}

	return snapshot
}

// expect rejects the command unless the session is running and in one of the given states.
func (that *Session) expect(command string, states ...entity.GameState) error {
	if that.diagnostic != nil {
		return fmt.Errorf("%w: %w", apperror.ErrSessionHalted, apperror.ErrInvariantViolation)
	}

	if len(states) == 0 || slices.Contains(states, that.state) {
		return nil
	}

	return that.reject(command, fmt.Errorf("%w: %s in %s", apperror.ErrOperationForbidden, command, that.state))
}

func (that *Session) reject(command string, err error) error {
	that.logger.Warn("command rejected", "command", command, "state", that.state, "error", err)

	return err
}

// commit finishes a mutating command: an internal failure or a broken
// invariant halts the session.
func (that *Session) commit(err error) error {
	if err == nil {
		err = that.verify()
	}

	if err == nil {
		return nil
	}

	that.halt(err)

	return fmt.Errorf("%w: %w", apperror.ErrInvariantViolation, err)
}

// verify checks that QuestionChooser and Answering each have at most one holder.
func (that *Session) verify() error {
	holders := make(map[entity.PlayerState]int)
	for _, player := range that.players.Snapshot() {
		if player.State.IsExclusive() {
			holders[player.State]++
		}
	}

	for state, count := range holders {
		if count > 1 {
			return fmt.Errorf("%d players hold %s", count, state)
		}
	}

	return nil
}

func (that *Session) halt(cause error) {
	that.arbiter.Cancel()
	that.version++
	that.diagnostic = &entity.Diagnostic{
		Reason:  cause.Error(),
		Players: that.players.Snapshot(),
	}

	snapshot := that.snapshot()
	that.diagnostic.State = snapshot

	that.logger.Error("session halted", "reason", cause, "state", that.state, "version", that.version, "players", that.diagnostic.Players)
	that.publisher.Publish(publisher.EventGameState, snapshot)
}

func (that *Session) transition(to entity.GameState) {
	that.logger.Debug("state transition", "from", that.state, "to", to)

	that.state = to
	that.version++
	that.publisher.Publish(publisher.EventGameState, that.snapshot())
}

func (that *Session) setState(id int, state entity.PlayerState) error {
	if err := that.players.SetState(id, state); err != nil {
		return fmt.Errorf("failed to set player %d to %s: %w", id, state, err)
	}

	return nil
}

// moveAll moves every player in one of the from states to the given state.
func (that *Session) moveAll(to entity.PlayerState, from ...entity.PlayerState) error {
	for _, player := range that.players.Snapshot() {
		if slices.Contains(from, player.State) {
			if err := that.setState(player.ID, to); err != nil {
				return err
			}
		}
	}

	return nil
}

func (that *Session) publishPlayers() {
	that.version++
	that.publisher.Publish(publisher.EventPlayers, that.players.Snapshot())
}

func (that *Session) publishRound() {
	that.publisher.Publish(publisher.EventRound, that.catalog.Round())
}
