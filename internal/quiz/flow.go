package quiz

import (
	"fmt"

	"github.com/rocketscienceinc/buzzer-backend/internal/buzz"
	"github.com/rocketscienceinc/buzzer-backend/internal/entity"
	"github.com/rocketscienceinc/buzzer-backend/internal/publisher"
)

func (that *Session) beginRound() {
	that.attempts = nil
	that.played = make(map[entity.QuestionType]int)
	that.roundStartedAt = that.now()
	that.question = nil
	that.chooserID = entity.NoPlayer
}

// enterRound waits for the first chooser. A round with nothing left to play is closed at once.
func (that *Session) enterRound() error {
	that.transition(entity.StatePickFirstQuestionChooser)

	if !that.catalog.IsRoundComplete() {
		return nil
	}

	that.logger.Warn("round has no questions to play", "round", that.catalog.Round().Name, "index", that.catalog.RoundIndex())

	return that.finishRound()
}

// lowestScore returns the alive player with the lowest score, earliest registered on ties.
func (that *Session) lowestScore() int {
	chooser := entity.NoPlayer
	lowest := 0

	for _, player := range that.players.Snapshot() {
		if !player.IsAlive() {
			continue
		}

		if chooser == entity.NoPlayer || player.Score < lowest {
			chooser = player.ID
			lowest = player.Score
		}
	}

	return chooser
}

func (that *Session) chooseQuestion() error {
	if err := that.setState(that.chooserID, entity.PlayerQuestionChooser); err != nil {
		return err
	}

	that.publishPlayers()
	that.transition(entity.StateChooseQuestion)

	return nil
}

// eligible lists the players whose presses may enter the next window.
func (that *Session) eligible() []int {
	var ids []int
	for _, player := range that.players.Snapshot() {
		if player.AllowedToClick() && player.State != entity.PlayerAnsweredWrong {
			ids = append(ids, player.ID)
		}
	}

	return ids
}

func (that *Session) openWindow() error {
	result, decided := that.arbiter.Open(that.eligible())
	that.window = result.Window
	that.transition(entity.StateWaitingForAnswerRequests)

	if decided {
		return that.applyArbitration(result)
	}

	return nil
}

// onArbitration receives window results from the arbitrator. Results of
// superseded windows are ignored.
func (that *Session) onArbitration(result buzz.Result) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.diagnostic != nil || that.state != entity.StateWaitingForAnswerRequests || result.Window != that.window {
		that.logger.Debug("stale arbitration result dropped", "window", result.Window, "current", that.window, "state", that.state)
		return
	}

	_ = that.commit(that.applyArbitration(result))
}

func (that *Session) applyArbitration(result buzz.Result) error {
	if !result.HasWinner() {
		that.logger.Info("no response to question", "window", result.Window)
		return that.endQuestion(entity.NoPlayer)
	}

	if err := that.setState(result.WinnerID, entity.PlayerAnswering); err != nil {
		return err
	}

	that.activePlayerID = result.WinnerID
	that.logger.Info("player won the buzz", "playerID", result.WinnerID, "window", result.Window, "pressedAt", result.PressedAt)

	that.publishPlayers()
	that.transition(entity.StateAnswerAttemptReceived)

	return nil
}

// judge scores the answering player. A wrong answer reopens the window for
// the players who have not failed this question yet.
func (that *Session) judge(correct bool) error {
	if that.question == nil {
		return fmt.Errorf("no question in play in %s", that.state)
	}

	playerID := that.activePlayerID
	price := that.question.Price

	that.attempts = append(that.attempts, entity.AnswerAttempt{
		PlayerID: playerID,
		Correct:  correct,
		Price:    price,
		Type:     that.question.Type,
	})

	delta, state := price, entity.PlayerAnsweredCorrectly
	if !correct {
		delta, state = -price, entity.PlayerAnsweredWrong
	}

	if err := that.players.AdjustScore(playerID, delta); err != nil {
		return fmt.Errorf("failed to score player %d: %w", playerID, err)
	}

	if err := that.setState(playerID, state); err != nil {
		return err
	}

	that.activePlayerID = entity.NoPlayer
	that.logger.Info("answer judged", "playerID", playerID, "correct", correct, "delta", delta)
	that.publishPlayers()

	if correct {
		return that.endQuestion(playerID)
	}

	if len(that.eligible()) == 0 {
		return that.endQuestion(entity.NoPlayer)
	}

	if err := that.moveAll(entity.PlayerInactive, entity.PlayerAnsweredWrong); err != nil {
		return err
	}

	that.publishPlayers()

	return that.openWindow()
}

// endQuestion clears transient player states and moves on to the next
// question or the end of the round. winnerID becomes the next chooser.
func (that *Session) endQuestion(winnerID int) error {
	that.activePlayerID = entity.NoPlayer
	that.transition(entity.StateEndQuestion)

	if err := that.moveAll(entity.PlayerIdle, entity.PlayerAnswering, entity.PlayerAnsweredCorrectly); err != nil {
		return err
	}

	if err := that.moveAll(entity.PlayerInactive, entity.PlayerAnsweredWrong); err != nil {
		return err
	}

	if winnerID != entity.NoPlayer {
		that.chooserID = winnerID
	}
	that.question = nil

	that.publishPlayers()
	that.transition(entity.StateCheckEndOfRound)

	if !that.catalog.IsRoundComplete() {
		return that.chooseQuestion()
	}

	return that.finishRound()
}

func (that *Session) finishRound() error {
	that.transition(entity.StateShowRoundStats)

	round := that.catalog.Round()
	stats := buildRoundStats(round.Name, that.attempts, that.played, that.players.Snapshot(), that.now().Sub(that.roundStartedAt))
	stats.SessionID = that.sessionID
	that.roundStats = append(that.roundStats, stats)

	that.logger.Info("round finished", "round", stats.RoundName, "tries", stats.TotalTries, "elapsed", stats.Elapsed)
	that.publisher.Publish(publisher.EventRoundStats, stats)

	alive := 0
	for _, player := range that.players.Snapshot() {
		next := entity.PlayerIdle
		if !player.IsAlive() || (that.settings.EliminateNegative && player.Score < 0) {
			next = entity.PlayerDead
		} else {
			alive++
		}

		if player.State != next {
			if err := that.setState(player.ID, next); err != nil {
				return err
			}
		}
	}

	that.chooserID = entity.NoPlayer
	that.publishPlayers()

	switch {
	case !that.catalog.HasNextRound():
		that.endGame(entity.EndAllRoundsPlayed)
	case alive == 0:
		that.endGame(entity.EndNoPlayersLeft)
	case alive == 1:
		that.endGame(entity.EndOnePlayerLeft)
	default:
		that.transition(entity.StateStartNextRound)
	}

	return nil
}

func (that *Session) endGame(reason entity.EndGameReason) {
	result := buildFinalResult(that.sessionID, reason, that.players.Snapshot())
	that.finalResult = &result

	that.logger.Info("game finished", "sessionID", that.sessionID, "reason", reason)

	that.transition(entity.StateEndTheGame)
	that.publisher.Publish(publisher.EventFinalResults, result)
}
