package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rocketscienceinc/buzzer-backend/internal/entity"
	"github.com/rocketscienceinc/buzzer-backend/internal/repository"
)

const (
	defaultResultsLimit = 20
	maxResultsLimit     = 100
)

type snapshotRepo interface {
	GetAll(ctx context.Context) ([]repository.Snapshot, error)
}

type resultRepo interface {
	GetFinalResult(ctx context.Context, sessionID string) (*entity.FinalResult, error)
	ListFinalResults(ctx context.Context, limit int) ([]entity.FinalResult, error)
	ListRoundStats(ctx context.Context, sessionID string) ([]entity.RoundStats, error)
}

type GameResult struct {
	Result entity.FinalResult  `json:"result"`
	Rounds []entity.RoundStats `json:"rounds"`
}

type Handlers struct {
	logger       *slog.Logger
	snapshotRepo snapshotRepo
	resultRepo   resultRepo
}

func NewHandlers(logger *slog.Logger, snapshotRepo snapshotRepo, resultRepo resultRepo) *Handlers {
	return &Handlers{
		logger:       logger.With("component", "rest"),
		snapshotRepo: snapshotRepo,
		resultRepo:   resultRepo,
	}
}

func (that *Handlers) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", that.Ping)
	mux.HandleFunc("GET /state", that.State)
	mux.HandleFunc("GET /results", that.Results)
	mux.HandleFunc("GET /results/{sessionID}", that.Result)

	return mux
}

func (that *Handlers) Ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

// State returns the latest snapshot of every published event.
func (that *Handlers) State(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "State")

	snapshots, err := that.snapshotRepo.GetAll(r.Context())
	if err != nil {
		log.Error("failed to get snapshots", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	that.writeJSON(w, http.StatusOK, snapshots)
}

// Results lists archived games, newest first.
func (that *Handlers) Results(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "Results")

	limit := defaultResultsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(parsed, maxResultsLimit)
	}

	results, err := that.resultRepo.ListFinalResults(r.Context(), limit)
	if err != nil {
		log.Error("failed to list results", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	that.writeJSON(w, http.StatusOK, results)
}

// Result returns one archived game with its round stats.
func (that *Handlers) Result(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "Result")
	sessionID := r.PathValue("sessionID")

	result, err := that.resultRepo.GetFinalResult(r.Context(), sessionID)
	if errors.Is(err, repository.ErrResultNotFound) {
		http.Error(w, "result not found", http.StatusNotFound)
		return
	}

	if err != nil {
		log.Error("failed to get result", "sessionID", sessionID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	rounds, err := that.resultRepo.ListRoundStats(r.Context(), sessionID)
	if err != nil {
		log.Error("failed to list round stats", "sessionID", sessionID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	that.writeJSON(w, http.StatusOK, GameResult{Result: *result, Rounds: rounds})
}

func (that *Handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}
