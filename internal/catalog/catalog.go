// Package catalog keeps the pack's rounds and the usage flags of the round in play.
package catalog

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/buzzer-backend/internal/apperror"
	"github.com/rocketscienceinc/buzzer-backend/internal/entity"
)

var ErrNoNextRound = errors.New("no next round in pack")

const noRound = -1

type Catalog struct {
	rounds []entity.Round

	current    entity.Round
	roundIndex int
	remaining  int
}

// New creates a catalog over the pack rounds. No round is in play until LoadNextRound or LoadRound.
func New(rounds []entity.Round) *Catalog {
	catalog := &Catalog{roundIndex: noRound}
	catalog.SetRounds(rounds)

	return catalog
}

// SetRounds replaces the pack rounds and rewinds to before the first round.
func (that *Catalog) SetRounds(rounds []entity.Round) {
	that.rounds = make([]entity.Round, len(rounds))
	for i := range rounds {
		that.rounds[i] = rounds[i].Clone()
	}

	that.Rewind()
}

func (that *Catalog) Rewind() {
	that.current = entity.Round{}
	that.roundIndex = noRound
	that.remaining = 0
}

// LoadRound puts a round in play. Questions get their topic name and position stamped.
func (that *Catalog) LoadRound(round entity.Round) {
	that.current = round.Clone()
	that.remaining = 0

	for i := range that.current.Topics {
		topic := &that.current.Topics[i]
		for j := range topic.Questions {
			question := &topic.Questions[j]
			question.Index = j
			question.TopicName = topic.Name
			if !question.Used {
				that.remaining++
			}
		}
	}
}

// LoadNextRound advances to the next pack round and puts it in play.
func (that *Catalog) LoadNextRound() (entity.Round, error) {
	if !that.HasNextRound() {
		return entity.Round{}, ErrNoNextRound
	}

	that.roundIndex++
	that.LoadRound(that.rounds[that.roundIndex])

	return that.Round(), nil
}

// SelectQuestion returns the question and marks it used. A question can be selected once.
func (that *Catalog) SelectQuestion(topicIndex, questionIndex int) (entity.Question, error) {
	if topicIndex < 0 || topicIndex >= len(that.current.Topics) {
		return entity.Question{}, fmt.Errorf("%w: topic %d", apperror.ErrOutOfRange, topicIndex)
	}

	topic := &that.current.Topics[topicIndex]
	if questionIndex < 0 || questionIndex >= len(topic.Questions) {
		return entity.Question{}, fmt.Errorf("%w: question %d in topic %d", apperror.ErrOutOfRange, questionIndex, topicIndex)
	}

	question := &topic.Questions[questionIndex]
	if question.Used {
		return entity.Question{}, fmt.Errorf("%w: topic %q price %d", apperror.ErrAlreadyUsed, topic.Name, question.Price)
	}

	question.Used = true
	that.remaining--

	return question.Clone(), nil
}

func (that *Catalog) IsRoundComplete() bool {
	return that.remaining == 0
}

func (that *Catalog) HasNextRound() bool {
	return that.roundIndex+1 < len(that.rounds)
}

func (that *Catalog) QuestionsLeft() int {
	return that.remaining
}

// Round returns a copy of the round in play.
func (that *Catalog) Round() entity.Round {
	return that.current.Clone()
}

func (that *Catalog) RoundIndex() int {
	return that.roundIndex
}

func (that *Catalog) RoundCount() int {
	return len(that.rounds)
}
