package entity

// NoPlayer is the zero player id. Registered players always have a positive id.
const NoPlayer = 0

type PlayerState string

const (
	PlayerIdle              PlayerState = "Idle"
	PlayerQuestionChooser   PlayerState = "QuestionChooser"
	PlayerTarget            PlayerState = "Target"
	PlayerAnswering         PlayerState = "Answering"
	PlayerInactive          PlayerState = "Inactive"
	PlayerDead              PlayerState = "Dead"
	PlayerAnsweredCorrectly PlayerState = "AnsweredCorrectly"
	PlayerAnsweredWrong     PlayerState = "AnsweredWrong"
)

// IsExclusive reports whether at most one player may hold the state at a time.
func (that PlayerState) IsExclusive() bool {
	return that == PlayerQuestionChooser || that == PlayerAnswering
}

func (that PlayerState) IsValid() bool {
	switch that {
	case PlayerIdle, PlayerQuestionChooser, PlayerTarget, PlayerAnswering, PlayerInactive,
		PlayerDead, PlayerAnsweredCorrectly, PlayerAnsweredWrong:
		return true
	default:
		return false
	}
}

type Player struct {
	ID    int         `json:"id"`
	Name  string      `json:"name"`
	Icon  string      `json:"icon,omitempty"`
	Score int         `json:"score"`
	State PlayerState `json:"state"`
}

// AllowedToClick reports whether the player's button presses may enter arbitration.
func (that *Player) AllowedToClick() bool {
	return that.State != PlayerDead && that.State != PlayerInactive
}

func (that *Player) IsAlive() bool {
	return that.State != PlayerDead
}
