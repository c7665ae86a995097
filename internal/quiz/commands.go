package quiz

import (
	"fmt"

	"github.com/rocketscienceinc/buzzer-backend/internal/apperror"
	"github.com/rocketscienceinc/buzzer-backend/internal/entity"
	"github.com/rocketscienceinc/buzzer-backend/internal/publisher"
)

// RegisterPlayers replaces the roster. Every player starts Idle.
func (that *Session) RegisterPlayers(players []entity.Player) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.expect("registerPlayers", entity.StateSetupAndLoading); err != nil {
		return err
	}

	if err := validateRoster(players); err != nil {
		return that.reject("registerPlayers", err)
	}

	that.players.Clear()
	for _, player := range players {
		player.State = entity.PlayerIdle
		if _, err := that.players.Register(player); err != nil {
			return that.commit(fmt.Errorf("failed to register validated player: %w", err))
		}
	}

	that.publishPlayers()

	return that.commit(nil)
}

func (that *Session) LoadPack(pack entity.Pack) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.expect("loadPack", entity.StateSetupAndLoading); err != nil {
		return err
	}

	if len(pack.Rounds) == 0 {
		return that.reject("loadPack", fmt.Errorf("%w: pack %q has no rounds", apperror.ErrNoPack, pack.Name))
	}

	info := pack.Info()
	that.packInfo = &info
	that.catalog.SetRounds(pack.Rounds)
	that.version++

	that.logger.Info("pack loaded", "pack", info.Name, "rounds", info.Rounds, "questions", info.Questions)
	that.publisher.Publish(publisher.EventPackInfo, info)

	return nil
}

// ConfigureHub publishes the hub settings for the UI. It is accepted in any state.
func (that *Session) ConfigureHub(config entity.HubConfig) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.expect("configureHub"); err != nil {
		return err
	}

	that.version++
	that.publisher.Publish(publisher.EventHubConfig, config)

	return nil
}

// StartGame puts the first pack round in play and stamps a new game id.
func (that *Session) StartGame() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.expect("startGame", entity.StateSetupAndLoading); err != nil {
		return err
	}

	if that.packInfo == nil {
		return that.reject("startGame", apperror.ErrNoPack)
	}

	if that.players.Len() < that.settings.MinPlayers {
		return that.reject("startGame", fmt.Errorf("%w: %d of %d", apperror.ErrNotEnoughPlayers, that.players.Len(), that.settings.MinPlayers))
	}

	that.catalog.Rewind()
	if _, err := that.catalog.LoadNextRound(); err != nil {
		return that.commit(fmt.Errorf("failed to load first round: %w", err))
	}

	that.sessionID = that.newID()
	that.roundStats = nil
	that.finalResult = nil
	that.beginRound()

	that.logger.Info("game started", "sessionID", that.sessionID, "players", that.players.Len())

	that.publishRound()
	that.publishPlayers()

	return that.commit(that.enterRound())
}

// PickFirstQuestionChooser hands QuestionChooser to victimID, or to the alive
// player with the lowest score when victimID is NoPlayer.
func (that *Session) PickFirstQuestionChooser(victimID int) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.expect("pickFirstQuestionChooser", entity.StatePickFirstQuestionChooser); err != nil {
		return err
	}

	chooser := victimID
	if chooser == entity.NoPlayer {
		chooser = that.lowestScore()
		if chooser == entity.NoPlayer {
			return that.reject("pickFirstQuestionChooser", apperror.ErrNoActivePlayers)
		}
	} else {
		player, err := that.players.Get(victimID)
		if err != nil {
			return that.reject("pickFirstQuestionChooser", err)
		}

		if !player.IsAlive() {
			return that.reject("pickFirstQuestionChooser", fmt.Errorf("%w: player %d is dead", apperror.ErrInvalidPlayer, victimID))
		}
	}

	that.chooserID = chooser

	return that.commit(that.chooseQuestion())
}

// SelectQuestion is accepted from the current chooser only.
func (that *Session) SelectQuestion(playerID, topicIndex, questionIndex int) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.expect("selectQuestion", entity.StateChooseQuestion); err != nil {
		return err
	}

	if playerID != that.chooserID {
		if _, err := that.players.Get(playerID); err != nil {
			return that.reject("selectQuestion", err)
		}

		return that.reject("selectQuestion", fmt.Errorf("%w: player %d is not the chooser", apperror.ErrWrongTurn, playerID))
	}

	question, err := that.catalog.SelectQuestion(topicIndex, questionIndex)
	if err != nil {
		return that.reject("selectQuestion", err)
	}

	that.question = &question
	that.played[question.Type]++

	if err = that.moveAll(entity.PlayerIdle, entity.PlayerInactive, entity.PlayerQuestionChooser); err != nil {
		return that.commit(err)
	}

	that.logger.Info("question selected", "playerID", playerID, "topic", question.TopicName, "price", question.Price)

	that.publishRound()
	that.publisher.Publish(publisher.EventQuestion, question.Clone())
	that.publishPlayers()
	that.transition(entity.StateDisplayQuestion)

	return that.commit(nil)
}

// AllowAnswer opens the buzz window for the displayed question.
func (that *Session) AllowAnswer() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.expect("allowAnswer", entity.StateDisplayQuestion); err != nil {
		return err
	}

	return that.commit(that.openWindow())
}

// Signal forwards a hub signal to the arbitrator. The session lock is not held
// while submitting: a closing press delivers its result synchronously.
func (that *Session) Signal(signal entity.PlayerSignal) error {
	that.mu.Lock()
	if err := that.expect("signal"); err != nil {
		that.mu.Unlock()
		return err
	}

	if _, err := that.players.Get(signal.PlayerID); err != nil {
		that.mu.Unlock()
		that.logger.Debug("signal from unknown player dropped", "playerID", signal.PlayerID)
		return err
	}

	if that.state != entity.StateWaitingForAnswerRequests {
		state := that.state
		that.mu.Unlock()
		that.logger.Debug("signal dropped", "playerID", signal.PlayerID, "state", state)
		return apperror.ErrWindowClosed
	}
	that.mu.Unlock()

	return that.arbiter.Submit(signal)
}

// AnswerQuestion judges the answering player's attempt.
func (that *Session) AnswerQuestion(correct bool) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.expect("answerQuestion", entity.StateAnswerAttemptReceived); err != nil {
		return err
	}

	return that.commit(that.judge(correct))
}

// FinishQuestionPrematurely ends the question without scoring or recording an attempt.
func (that *Session) FinishQuestionPrematurely() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.expect("finishQuestionPrematurely",
		entity.StateDisplayQuestion, entity.StateWaitingForAnswerRequests, entity.StateAnswerAttemptReceived); err != nil {
		return err
	}

	that.arbiter.Cancel()

	return that.commit(that.endQuestion(entity.NoPlayer))
}

func (that *Session) InitNextRound() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.expect("initNextRound", entity.StateStartNextRound); err != nil {
		return err
	}

	round, err := that.catalog.LoadNextRound()
	if err != nil {
		return that.commit(fmt.Errorf("failed to load next round: %w", err))
	}

	that.beginRound()

	that.logger.Info("round started", "round", round.Name, "index", that.catalog.RoundIndex())

	that.publishRound()

	return that.commit(that.enterRound())
}

// ResetGame returns to SetupAndLoading keeping the roster, with zeroed scores, and the pack.
func (that *Session) ResetGame() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.expect("resetGame"); err != nil {
		return err
	}

	that.arbiter.Cancel()
	that.players.ResetProgress()
	that.catalog.Rewind()
	that.sessionID = ""
	that.roundStats = nil
	that.finalResult = nil
	that.activePlayerID = entity.NoPlayer
	that.beginRound()

	that.logger.Info("game reset")

	that.publishPlayers()
	that.transition(entity.StateSetupAndLoading)

	return that.commit(nil)
}

func validateRoster(players []entity.Player) error {
	seen := make(map[int]struct{}, len(players))
	for _, player := range players {
		if player.ID <= entity.NoPlayer {
			return fmt.Errorf("%w: id %d", apperror.ErrInvalidPlayer, player.ID)
		}

		if _, ok := seen[player.ID]; ok {
			return fmt.Errorf("%w: id %d", apperror.ErrDuplicatePlayer, player.ID)
		}
		seen[player.ID] = struct{}{}
	}

	return nil
}
