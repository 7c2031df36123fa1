package db

import (
	"strings"
	"testing"
)

func TestConfigURLs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "p@ss word"

	if dsn := cfg.DSN(); !strings.Contains(dsn, "dbname=placement_timeline") || !strings.Contains(dsn, "sslmode=disable") {
		t.Fatalf("unexpected dsn %q", dsn)
	}

	got := cfg.MigrateURL()
	if !strings.HasPrefix(got, "pgx5://postgres:") || !strings.HasSuffix(got, "@localhost:5432/placement_timeline?sslmode=disable") {
		t.Fatalf("unexpected migrate url %q", got)
	}
	if strings.Contains(got, "p@ss word") {
		t.Fatalf("expected password to be escaped, got %q", got)
	}
}

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	src, err := MigrationSource()
	if err != nil {
		t.Fatalf("open migrations: %v", err)
	}
	defer src.Close()

	first, err := src.First()
	if err != nil {
		t.Fatalf("first migration: %v", err)
	}
	if first != 1 {
		t.Fatalf("expected first version 1, got %d", first)
	}
	next, err := src.Next(first)
	if err != nil || next != 2 {
		t.Fatalf("expected second version 2, got %d (%v)", next, err)
	}

	up, ident, err := src.ReadUp(next)
	if err != nil {
		t.Fatalf("read up: %v", err)
	}
	defer up.Close()
	if ident != "create_companies" {
		t.Fatalf("unexpected identifier %q", ident)
	}
}
