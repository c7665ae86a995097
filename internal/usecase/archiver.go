package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/buzzer-backend/internal/entity"
	"github.com/rocketscienceinc/buzzer-backend/internal/publisher"
)

type resultRepo interface {
	SaveFinalResult(ctx context.Context, result entity.FinalResult) error
	SaveRoundStats(ctx context.Context, stats entity.RoundStats) error
}

// Archiver is a publisher sink that keeps finished rounds and games.
type Archiver struct {
	logger     *slog.Logger
	resultRepo resultRepo
}

func NewArchiver(logger *slog.Logger, resultRepo resultRepo) *Archiver {
	return &Archiver{
		logger:     logger.With("component", "archiver"),
		resultRepo: resultRepo,
	}
}

// Deliver stores RoundStats and FinalResults events and ignores the rest.
func (that *Archiver) Deliver(ctx context.Context, event publisher.Event) error {
	log := that.logger.With("method", "Deliver", "event", event.Name, "seq", event.Seq)

	switch payload := event.Payload.(type) {
	case entity.RoundStats:
		if err := that.resultRepo.SaveRoundStats(ctx, payload); err != nil {
			return fmt.Errorf("failed to archive round stats: %w", err)
		}

		log.Debug("round stats archived", "sessionID", payload.SessionID, "round", payload.RoundName)
	case entity.FinalResult:
		if err := that.resultRepo.SaveFinalResult(ctx, payload); err != nil {
			return fmt.Errorf("failed to archive final result: %w", err)
		}

		log.Info("game archived", "sessionID", payload.SessionID, "reason", payload.Reason)
	}

	return nil
}
