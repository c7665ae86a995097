package quiz

import (
	"cmp"
	"slices"
	"time"

	"github.com/rocketscienceinc/buzzer-backend/internal/entity"
)

// buildRoundStats derives the round summary from the attempts judged during the round.
func buildRoundStats(
	roundName string,
	attempts []entity.AnswerAttempt,
	played map[entity.QuestionType]int,
	players []entity.Player,
	elapsed time.Duration,
) entity.RoundStats {
	stats := entity.RoundStats{
		RoundName:          roundName,
		NormalQuestions:    played[entity.QuestionNormal],
		PigInPokeQuestions: played[entity.QuestionPigInPoke],
		AuctionQuestions:   played[entity.QuestionAuction],
		TotalTries:         len(attempts),
		Elapsed:            elapsed,
		Players:            make([]entity.PlayerRoundStats, 0, len(players)),
	}
	stats.QuestionsPlayed = stats.NormalQuestions + stats.PigInPokeQuestions + stats.AuctionQuestions

	byPlayer := make(map[int]*entity.PlayerRoundStats, len(players))
	for _, player := range players {
		stats.Players = append(stats.Players, entity.PlayerRoundStats{
			ID:    player.ID,
			Name:  player.Name,
			Icon:  player.Icon,
			Score: player.Score,
		})
	}
	for i := range stats.Players {
		byPlayer[stats.Players[i].ID] = &stats.Players[i]
	}

	for _, attempt := range attempts {
		if attempt.Correct {
			stats.TotalCorrectAnswers++
		} else {
			stats.TotalWrongAnswers++
		}

		player, ok := byPlayer[attempt.PlayerID]
		if !ok {
			continue
		}

		player.TotalAnswers++
		if attempt.Correct {
			player.AnsweredCorrectly++
		} else {
			player.AnsweredWrong++
		}
	}

	return stats
}

// buildFinalResult ranks players by score, earlier registration first on ties.
func buildFinalResult(sessionID string, reason entity.EndGameReason, players []entity.Player) entity.FinalResult {
	ranked := make([]entity.PlayerFinalStats, 0, len(players))
	for _, player := range players {
		ranked = append(ranked, entity.PlayerFinalStats{
			ID:    player.ID,
			Name:  player.Name,
			Icon:  player.Icon,
			Score: player.Score,
		})
	}

	slices.SortStableFunc(ranked, func(a, b entity.PlayerFinalStats) int {
		return cmp.Compare(b.Score, a.Score)
	})

	result := entity.FinalResult{
		SessionID: sessionID,
		Reason:    reason,
		TheRest:   []entity.PlayerFinalStats{},
	}

	for i := range ranked {
		place := ranked[i]
		switch i {
		case 0:
			result.First = &place
		case 1:
			result.Second = &place
		case 2:
			result.Third = &place
		default:
			result.TheRest = append(result.TheRest, place)
		}
	}

	return result
}
