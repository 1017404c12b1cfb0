package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Keranthos/softeng-platform/internal/config"
)

// Querier is the part of the store the maintenance tools read and write
// through. Both *Storage and *Tx implement it; placeholders are always "?".
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
	// Exec returns the number of affected rows.
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Dialect() Dialect
}

// Client is a Querier bound to one transaction.
type Client interface {
	Querier
	Commit() error
	Rollback() error
}

type Storage struct {
	db      *sql.DB
	dialect Dialect
}

// New connects to the configured database.
func New(ctx context.Context, cfg *config.Config) (*Storage, error) {
	dialect, dsn, err := DialectFor(cfg)
	if err != nil {
		return nil, err
	}
	s, err := Open(ctx, dialect, dsn)
	if err != nil {
		return nil, err
	}
	slog.Info("database connected", "driver", dialect.Name(), "database", databaseLabel(cfg))
	return s, nil
}

// Open opens a single-connection store for the dialect.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Storage, error) {
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The tools are strictly sequential; one connection also keeps
	// in-memory SQLite databases from splitting across connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := dialect.setup(ctx, db); err != nil {
		slog.Warn("failed to prepare connection", "driver", dialect.Name(), "error", err)
	}

	return &Storage{db: db, dialect: dialect}, nil
}

func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Storage) DB() *sql.DB {
	return s.db
}

func (s *Storage) Dialect() Dialect {
	return s.dialect
}

func (s *Storage) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Storage) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Storage) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Begin starts the run transaction.
func (s *Storage) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{tx: tx, dialect: s.dialect}, nil
}

// WithTransaction runs fn inside a transaction, committing when fn returns
// nil and rolling back otherwise.
func (s *Storage) WithTransaction(ctx context.Context, fn func(Client) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		// database/sql already rolled back if ctx was cancelled
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.Error("rollback failed", "error", rbErr)
		} else {
			slog.Warn("transaction rolled back", "error", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *Tx) Dialect() Dialect {
	return t.dialect
}

func (t *Tx) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.dialect.Rebind(query), args...)
}

func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.Rebind(query), args...)
}

func (t *Tx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, t.dialect.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

func databaseLabel(cfg *config.Config) string {
	if cfg.Database.Driver == config.DriverSQLite {
		return cfg.Database.Path
	}
	return fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
}
