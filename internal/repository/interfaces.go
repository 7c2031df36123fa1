package repository

import (
	"context"

	"github.com/rpattn/placement-timeline/internal/domain"

	"github.com/google/uuid"
)

// MergeRunRepository records merge and update invocations.
type MergeRunRepository interface {
	Record(ctx context.Context, run domain.MergeRun) error
	List(ctx context.Context, limit int, offset int) ([]domain.MergeRun, error)
}

// CompanyRepository stores the latest merged dataset.
type CompanyRepository interface {
	// ReplaceAll swaps the stored dataset for companies in a single transaction.
	ReplaceAll(ctx context.Context, runID uuid.UUID, companies []domain.Company) error
	// List returns the stored dataset in its original order.
	List(ctx context.Context) ([]domain.Company, error)
}
