package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rpattn/placement-timeline/internal/db"
	"github.com/rpattn/placement-timeline/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	companyColumns = []string{"position", "run_id", "company_name", "profile", "document"}
	eventColumns   = []string{"company_position", "ordinal", "event_id", "created_at", "title", "description", "tags"}
)

type companyRepository struct {
	pool *pgxpool.Pool
}

// NewCompanyRepository wires a repository backed by pgxpool.
func NewCompanyRepository(pool *pgxpool.Pool) CompanyRepository {
	return &companyRepository{pool: pool}
}

func (r *companyRepository) ReplaceAll(ctx context.Context, runID uuid.UUID, companies []domain.Company) error {
	if r.pool == nil {
		return fmt.Errorf("company repository not initialized")
	}

	companyRows, eventRows, err := datasetRows(runID, companies)
	if err != nil {
		return err
	}

	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		// timeline_events rows go with their companies through ON DELETE CASCADE
		if _, err := tx.Exec(ctx, `DELETE FROM companies`); err != nil {
			return fmt.Errorf("failed to clear companies: %w", err)
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"companies"}, companyColumns, pgx.CopyFromRows(companyRows)); err != nil {
			return fmt.Errorf("failed to copy companies: %w", err)
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"timeline_events"}, eventColumns, pgx.CopyFromRows(eventRows)); err != nil {
			return fmt.Errorf("failed to copy timeline events: %w", err)
		}
		return nil
	})
}

func (r *companyRepository) List(ctx context.Context) ([]domain.Company, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("company repository not initialized")
	}

	rows, err := r.pool.Query(ctx, `SELECT document FROM companies ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	companies := []domain.Company{}
	for rows.Next() {
		var document []byte
		if scanErr := rows.Scan(&document); scanErr != nil {
			return nil, fmt.Errorf("failed to scan company: %w", scanErr)
		}
		var company domain.Company
		if err := json.Unmarshal(document, &company); err != nil {
			return nil, fmt.Errorf("failed to decode company %d: %w", len(companies), err)
		}
		companies = append(companies, company)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate companies: %w", rowsErr)
	}

	return companies, nil
}

// datasetRows flattens companies into COPY rows for both tables. The full profile document is
// kept next to the flattened events so List can restore field order exactly.
func datasetRows(runID uuid.UUID, companies []domain.Company) ([][]any, [][]any, error) {
	run := pgtype.UUID{Bytes: runID, Valid: true}
	companyRows := make([][]any, 0, len(companies))
	var eventRows [][]any
	for pos, company := range companies {
		document, err := company.MarshalJSON()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode company %d: %w", pos, err)
		}

		var profile any
		if value := company.FieldString("profile"); value != "" {
			profile = value
		}
		companyRows = append(companyRows, []any{int32(pos), run, company.Name, profile, string(document)})

		for ordinal, ev := range company.Timeline {
			var tags any
			if ev.Tags != nil {
				tags = *ev.Tags
			}
			eventRows = append(eventRows, []any{int32(pos), int32(ordinal), ev.ID, ev.CreatedAt, ev.Title, ev.Description, tags})
		}
	}
	return companyRows, eventRows, nil
}
