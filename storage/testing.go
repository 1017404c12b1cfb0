package storage

import (
	"context"
	"embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

// The platform schema subset the maintenance tools touch, for tests.
//
//go:embed migrations/*.sql
var testMigrations embed.FS

// NewTestDB creates an in-memory SQLite store with the platform tables
func NewTestDB() (*Storage, func(), error) {
	s, err := Open(context.Background(), SQLite("sqlite3"), ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open test database: %w", err)
	}

	goose.SetBaseFS(testMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(s.DB(), "migrations"); err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cleanup := func() {
		s.Close()
	}

	return s, cleanup, nil
}
