package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/buzzer-backend/internal/entity"
)

var ErrResultNotFound = errors.New("result not found")

// ResultRepository archives finished games.
type ResultRepository interface {
	SaveFinalResult(ctx context.Context, result entity.FinalResult) error
	SaveRoundStats(ctx context.Context, stats entity.RoundStats) error
	GetFinalResult(ctx context.Context, sessionID string) (*entity.FinalResult, error)
	ListFinalResults(ctx context.Context, limit int) ([]entity.FinalResult, error)
	ListRoundStats(ctx context.Context, sessionID string) ([]entity.RoundStats, error)
}

type resultRepository struct {
	conn *sql.DB
	now  func() time.Time
}

func NewResultRepository(conn *sql.DB) ResultRepository {
	return &resultRepository{
		conn: conn,
		now:  time.Now,
	}
}

func (that *resultRepository) SaveFinalResult(ctx context.Context, result entity.FinalResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal final result: %w", err)
	}

	query := `INSERT INTO final_results (session_id, reason, result_json, finished_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET reason = excluded.reason, result_json = excluded.result_json, finished_at = excluded.finished_at`

	if _, err = that.conn.ExecContext(ctx, query, result.SessionID, string(result.Reason), string(resultJSON), that.now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to save final result: %w", err)
	}

	return nil
}

func (that *resultRepository) SaveRoundStats(ctx context.Context, stats entity.RoundStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal round stats: %w", err)
	}

	query := `INSERT INTO round_stats (session_id, round_name, stats_json, finished_at) VALUES (?, ?, ?, ?)`

	if _, err = that.conn.ExecContext(ctx, query, stats.SessionID, stats.RoundName, string(statsJSON), that.now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to save round stats: %w", err)
	}

	return nil
}

func (that *resultRepository) GetFinalResult(ctx context.Context, sessionID string) (*entity.FinalResult, error) {
	query := `SELECT result_json FROM final_results WHERE session_id = ?`

	var resultJSON string
	err := that.conn.QueryRowContext(ctx, query, sessionID).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResultNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get final result: %w", err)
	}

	var result entity.FinalResult
	if err = json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal final result: %w", err)
	}

	return &result, nil
}

// ListFinalResults returns the most recent results first.
func (that *resultRepository) ListFinalResults(ctx context.Context, limit int) ([]entity.FinalResult, error) {
	query := `SELECT result_json FROM final_results ORDER BY finished_at DESC, rowid DESC LIMIT ?`

	rows, err := that.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list final results: %w", err)
	}
	defer rows.Close()

	results := []entity.FinalResult{}
	for rows.Next() {
		var resultJSON string
		if err = rows.Scan(&resultJSON); err != nil {
			return nil, fmt.Errorf("failed to scan final result: %w", err)
		}

		var result entity.FinalResult
		if err = json.Unmarshal([]byte(resultJSON), &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal final result: %w", err)
		}
		results = append(results, result)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list final results: %w", err)
	}

	return results, nil
}

func (that *resultRepository) ListRoundStats(ctx context.Context, sessionID string) ([]entity.RoundStats, error) {
	query := `SELECT stats_json FROM round_stats WHERE session_id = ? ORDER BY id`

	rows, err := that.conn.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list round stats: %w", err)
	}
	defer rows.Close()

	stats := []entity.RoundStats{}
	for rows.Next() {
		var statsJSON string
		if err = rows.Scan(&statsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan round stats: %w", err)
		}

		var round entity.RoundStats
		if err = json.Unmarshal([]byte(statsJSON), &round); err != nil {
			return nil, fmt.Errorf("failed to unmarshal round stats: %w", err)
		}
		stats = append(stats, round)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list round stats: %w", err)
	}

	return stats, nil
}
