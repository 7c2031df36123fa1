package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rpattn/placement-timeline/internal/domain"

	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`DROP TABLE IF EXISTS "timeline_events"`,
	`DROP TABLE IF EXISTS "companies"`,
	`CREATE TABLE "companies" (
		"position" INTEGER PRIMARY KEY,
		"company_name" TEXT NOT NULL,
		"profile" TEXT,
		"document" TEXT NOT NULL
	)`,
	`CREATE TABLE "timeline_events" (
		"company_position" INTEGER NOT NULL REFERENCES companies(position),
		"ordinal" INTEGER NOT NULL,
		"event_id" INTEGER NOT NULL,
		"created_at" TEXT,
		"title" TEXT,
		"description" TEXT,
		"tags" TEXT,
		PRIMARY KEY ("company_position", "ordinal")
	)`,
	`CREATE INDEX IF NOT EXISTS idx_companies_name ON companies(company_name)`,
	`CREATE INDEX IF NOT EXISTS idx_timeline_events_event_id ON timeline_events(event_id)`,
}

// WriteSQLite writes a fresh SQLite snapshot of the dataset to path, replacing any existing file.
// Each profile keeps its full JSON document next to the flattened timeline rows. The snapshot
// is built at a temporary sibling and renamed into place, so a failed export keeps the old one.
func WriteSQLite(ctx context.Context, path string, companies []domain.Company) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(tmpName) }()

	if err := buildSQLite(ctx, tmpName, companies); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func buildSQLite(ctx context.Context, path string, companies []domain.Company) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite: %w", err)
	}
	defer db.Close()

	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to prepare sqlite schema: %w", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin sqlite transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	companyStmt, err := tx.PrepareContext(ctx, `INSERT INTO "companies" ("position", "company_name", "profile", "document") VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer companyStmt.Close()

	eventStmt, err := tx.PrepareContext(ctx, `INSERT INTO "timeline_events" ("company_position", "ordinal", "event_id", "created_at", "title", "description", "tags") VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer eventStmt.Close()

	for pos, company := range companies {
		document, err := EncodeCompanies([]domain.Company{company}, JSONOptions{})
		if err != nil {
			return err
		}
		// strip the surrounding list brackets
		document = document[1 : len(document)-1]

		if _, err := companyStmt.ExecContext(ctx, pos, company.Name, nullableString(company.FieldString("profile")), string(document)); err != nil {
			return fmt.Errorf("failed to insert company %d: %w", pos, err)
		}
		for ordinal, ev := range company.Timeline {
			var tags any
			if ev.Tags != nil {
				tags = *ev.Tags
			}
			if _, err := eventStmt.ExecContext(ctx, pos, ordinal, ev.ID, ev.CreatedAt, ev.Title, ev.Description, tags); err != nil {
				return fmt.Errorf("failed to insert event %d for company %d: %w", ev.ID, pos, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sqlite snapshot: %w", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
