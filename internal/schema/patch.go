// Package schema applies idempotent, additive schema patches.
package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Keranthos/softeng-platform/internal/config"
	"github.com/Keranthos/softeng-platform/storage"
)

// Column is a column added when missing. MySQLSuffix is appended only on
// MySQL (COMMENT and AFTER clauses).
type Column struct {
	Name        string
	Definition  string
	MySQLSuffix string
}

type Index struct {
	Name    string
	Columns string
}

// Patch is a set of additive changes to one table plus backfill statements
// that run after them.
type Patch struct {
	Table    string
	Columns  []Column
	Indexes  []Index
	Backfill []string
}

// ProjectStatus adds the review workflow columns to projects.
var ProjectStatus = Patch{
	Table: "projects",
	Columns: []Column{
		{Name: "status", Definition: "VARCHAR(50) DEFAULT 'approved'", MySQLSuffix: "COMMENT '审核状态：pending/approved/rejected' AFTER collections"},
		{Name: "audit_time", Definition: "TIMESTAMP NULL", MySQLSuffix: "COMMENT '审核时间' AFTER status"},
		{Name: "reject_reason", Definition: "TEXT NULL", MySQLSuffix: "COMMENT '拒绝原因' AFTER audit_time"},
	},
	Indexes: []Index{
		{Name: "idx_status", Columns: "status"},
	},
	Backfill: []string{
		"UPDATE projects SET status = 'approved' WHERE status IS NULL OR status = ''",
	},
}

type Result struct {
	AddedColumns   []string
	SkippedColumns []string
	AddedIndexes   []string
	SkippedIndexes []string
	Backfilled     int64
}

// Apply adds every missing column and index of p, then runs its backfill.
// Existing columns and indexes are left untouched, so Apply can run any
// number of times.
func Apply(ctx context.Context, q storage.Querier, p Patch) (Result, error) {
	var result Result

	names := []string{p.Table}
	for _, c := range p.Columns {
		names = append(names, c.Name)
	}
	for _, idx := range p.Indexes {
		names = append(names, idx.Name)
	}
	if err := storage.CheckIdent(names...); err != nil {
		return result, err
	}

	dialect := q.Dialect()
	log := slog.With("table", p.Table)

	for _, col := range p.Columns {
		exists, err := dialect.ColumnExists(ctx, q, p.Table, col.Name)
		if err != nil {
			return result, fmt.Errorf("check column %s.%s: %w", p.Table, col.Name, err)
		}
		if exists {
			log.Info("column already exists", "column", col.Name)
			result.SkippedColumns = append(result.SkippedColumns, col.Name)
			continue
		}

		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", p.Table, col.Name, col.Definition)
		if dialect.Name() == config.DriverMySQL && col.MySQLSuffix != "" {
			stmt += " " + col.MySQLSuffix
		}
		if _, err := q.Exec(ctx, stmt); err != nil {
			return result, fmt.Errorf("add column %s.%s: %w", p.Table, col.Name, err)
		}
		log.Info("added column", "column", col.Name)
		result.AddedColumns = append(result.AddedColumns, col.Name)
	}

	for _, idx := range p.Indexes {
		exists, err := dialect.IndexExists(ctx, q, p.Table, idx.Name)
		if err != nil {
			return result, fmt.Errorf("check index %s: %w", idx.Name, err)
		}
		if exists {
			log.Info("index already exists", "index", idx.Name)
			result.SkippedIndexes = append(result.SkippedIndexes, idx.Name)
			continue
		}

		stmt := fmt.Sprintf("CREATE INDEX %s ON %s(%s)", idx.Name, p.Table, idx.Columns)
		if _, err := q.Exec(ctx, stmt); err != nil {
			return result, fmt.Errorf("create index %s: %w", idx.Name, err)
		}
		log.Info("added index", "index", idx.Name)
		result.AddedIndexes = append(result.AddedIndexes, idx.Name)
	}

	for _, stmt := range p.Backfill {
		n, err := q.Exec(ctx, stmt)
		if err != nil {
			return result, fmt.Errorf("backfill %s: %w", p.Table, err)
		}
		result.Backfilled += n
	}
	log.Info("backfill complete", "rows", result.Backfilled)

	return result, nil
}

// StatusCounts reports how many projects are approved out of the total.
func StatusCounts(ctx context.Context, q storage.Querier) (approved, total int, err error) {
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM projects WHERE status = 'approved'").Scan(&approved); err != nil {
		return 0, 0, fmt.Errorf("count approved projects: %w", err)
	}
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM projects").Scan(&total); err != nil {
		return 0, 0, fmt.Errorf("count projects: %w", err)
	}
	return approved, total, nil
}
