package entity

import "time"

type GameState string

const (
	StateSetupAndLoading          GameState = "SetupAndLoading"
	StatePickFirstQuestionChooser GameState = "PickFirstQuestionChooser"
	StateChooseQuestion           GameState = "ChooseQuestion"
	StateDisplayQuestion          GameState = "DisplayQuestion"
	StateWaitingForAnswerRequests GameState = "WaitingForAnswerRequests"
	StateAnswerAttemptReceived    GameState = "AnswerAttemptReceived"
	StateEndQuestion              GameState = "EndQuestion"
	StateCheckEndOfRound          GameState = "CheckEndOfRound"
	StateShowRoundStats           GameState = "ShowRoundStats"
	StateStartNextRound           GameState = "StartNextRound"
	StateEndTheGame               GameState = "EndTheGame"
)

func (that GameState) IsFinished() bool {
	return that == StateEndTheGame
}

// PlayerSignal is the hub adapter output: one button press or release.
type PlayerSignal struct {
	PlayerID  int           `json:"playerId"`
	Pressed   bool          `json:"pressed"`
	Timestamp time.Duration `json:"timestampMonotonic"`
}

// AnswerAttempt is one judged answer, accumulated per round.
type AnswerAttempt struct {
	PlayerID int          `json:"playerId"`
	Correct  bool         `json:"correct"`
	Price    int          `json:"price"`
	Type     QuestionType `json:"type"`
}

type PlayerRoundStats struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	Icon              string `json:"playerIconPath,omitempty"`
	Score             int    `json:"score"`
	TotalAnswers      int    `json:"totalAnswers"`
	AnsweredCorrectly int    `json:"answeredCorrectly"`
	AnsweredWrong     int    `json:"answeredWrong"`
}

type RoundStats struct {
	SessionID           string             `json:"sessionId,omitempty"`
	RoundName           string             `json:"roundName"`
	QuestionsPlayed     int                `json:"questionsPlayed"`
	NormalQuestions     int                `json:"normalQuestionsPlayed"`
	PigInPokeQuestions  int                `json:"pigInPokeQuestionsPlayed"`
	AuctionQuestions    int                `json:"auctionQuestionsPlayed"`
	TotalCorrectAnswers int                `json:"totalCorrectAnswers"`
	TotalWrongAnswers   int                `json:"totalWrongAnswers"`
	TotalTries          int                `json:"totalTries"`
	Elapsed             time.Duration      `json:"roundTime"`
	Players             []PlayerRoundStats `json:"players"`
}

type EndGameReason string

const (
	EndOnePlayerLeft   EndGameReason = "OnePlayerLeft"
	EndNoPlayersLeft   EndGameReason = "NoPlayersLeft"
	EndAllRoundsPlayed EndGameReason = "AllRoundsPlayed"
)

type PlayerFinalStats struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"playerIconPath,omitempty"`
	Score int    `json:"score"`
}

type FinalResult struct {
	SessionID string             `json:"sessionId"`
	Reason    EndGameReason      `json:"endGameReason"`
	First     *PlayerFinalStats  `json:"first,omitempty"`
	Second    *PlayerFinalStats  `json:"second,omitempty"`
	Third     *PlayerFinalStats  `json:"third,omitempty"`
	TheRest   []PlayerFinalStats `json:"theRest"`
}

// Ranked returns the podium followed by the rest, in ranking order.
func (that *FinalResult) Ranked() []PlayerFinalStats {
	ranked := make([]PlayerFinalStats, 0, 3+len(that.TheRest))
	for _, place := range []*PlayerFinalStats{that.First, that.Second, that.Third} {
		if place != nil {
			ranked = append(ranked, *place)
		}
	}

	return append(ranked, that.TheRest...)
}

type HubConfig struct {
	HubPort        string   `json:"hubPort"`
	AvailablePorts []string `json:"availablePorts"`
	RadioChannel   int      `json:"radioChannel"`
	Players        []Player `json:"players"`
}

// GameStateSnapshot is the published view of the top-level phase.
type GameStateSnapshot struct {
	SessionID      string    `json:"sessionId,omitempty"`
	State          GameState `json:"state"`
	Version        uint64    `json:"version"`
	RoundIndex     int       `json:"roundIndex"`
	ActivePlayerID int       `json:"activePlayerId"`
	AnswerAllowed  bool      `json:"answerAllowed"`
	Halted         bool      `json:"halted,omitempty"`
	Diagnostic     string    `json:"diagnostic,omitempty"`
}

// Diagnostic is captured when the session halts on an invariant violation.
type Diagnostic struct {
	Reason  string            `json:"reason"`
	State   GameStateSnapshot `json:"state"`
	Players []Player          `json:"players"`
}
