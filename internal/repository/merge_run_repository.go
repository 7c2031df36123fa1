package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rpattn/placement-timeline/internal/domain"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type mergeRunRepository struct {
	pool *pgxpool.Pool
}

// NewMergeRunRepository wires a repository backed by pgxpool.
func NewMergeRunRepository(pool *pgxpool.Pool) MergeRunRepository {
	return &mergeRunRepository{pool: pool}
}

func (r *mergeRunRepository) Record(ctx context.Context, run domain.MergeRun) error {
	if r.pool == nil {
		return fmt.Errorf("merge run repository not initialized")
	}

	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}

	_, err = r.pool.Exec(
		ctx,
		`INSERT INTO merge_runs (id, kind, status, source_file, output_file, summary, error_message, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID,
		string(run.Kind),
		string(run.Status),
		run.SourceFile,
		run.OutputFile,
		summary,
		run.ErrorMessage,
		run.StartedAt,
		run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record merge run: %w", err)
	}

	return nil
}

func (r *mergeRunRepository) List(ctx context.Context, limit int, offset int) ([]domain.MergeRun, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("merge run repository not initialized")
	}

	limit, offset = normalizePage(limit, offset)

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, kind, status, source_file, output_file, summary, error_message, started_at, completed_at
		 FROM merge_runs
		 ORDER BY started_at DESC
		 LIMIT $1 OFFSET $2`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list merge runs: %w", err)
	}
	defer rows.Close()

	runs := []domain.MergeRun{}
	for rows.Next() {
		var (
			run          domain.MergeRun
			kind, status string
			summary      []byte
			errorMessage pgtype.Text
		)
		if scanErr := rows.Scan(
			&run.ID,
			&kind,
			&status,
			&run.SourceFile,
			&run.OutputFile,
			&summary,
			&errorMessage,
			&run.StartedAt,
			&run.CompletedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan merge run: %w", scanErr)
		}

		run.Kind = domain.MergeKind(kind)
		run.Status = domain.MergeRunStatus(status)
		if len(summary) > 0 {
			if err := json.Unmarshal(summary, &run.Summary); err != nil {
				return nil, fmt.Errorf("failed to decode summary for run %s: %w", run.ID, err)
			}
		}
		if errorMessage.Valid {
			msg := errorMessage.String
			run.ErrorMessage = &msg
		}

		runs = append(runs, run)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate merge runs: %w", rowsErr)
	}

	return runs, nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
