package localizer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Keranthos/softeng-platform/internal/config"
	"github.com/Keranthos/softeng-platform/storage"
)

// Target describes one table column holding image URLs.
type Target struct {
	Table     string
	IDColumn  string
	URLColumn string
	// Filter is an optional extra SQL condition. It is trusted input.
	Filter string
}

// DefaultTargets are the image-bearing columns of the platform schema.
var DefaultTargets = []Target{
	{Table: "tool_images", IDColumn: "id", URLColumn: "image_url"},
	{Table: "project_images", IDColumn: "id", URLColumn: "image_url"},
	{Table: "courses", IDColumn: "course_id", URLColumn: "cover"},
	{Table: "projects", IDColumn: "project_id", URLColumn: "cover"},
}

// Fetcher downloads a single asset.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Asset, error)
}

// Transactor runs a function inside one database transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(storage.Client) error) error
}

// Migrator localizes remote images referenced by database rows.
type Migrator struct {
	classifier Classifier
	fetcher    Fetcher
	namer      *Namer
	store      *AssetStore
}

func NewMigrator(cfg *config.Config, fetcher Fetcher) *Migrator {
	return &Migrator{
		classifier: NewClassifier(),
		fetcher:    fetcher,
		namer:      NewNamer(".jpg", true),
		store:      NewAssetStore(cfg.Upload.Root, cfg.Upload.PublicPrefix, true),
	}
}

type row struct {
	id  any
	url string
}

// MigrateTable localizes every external URL in target. Download and
// filesystem failures are counted as skips; query and update failures are
// returned and leave the caller to roll back.
func (m *Migrator) MigrateTable(ctx context.Context, q storage.Querier, target Target) (TableReport, error) {
	report := TableReport{Table: target.Table}

	if err := storage.CheckIdent(target.Table, target.IDColumn, target.URLColumn); err != nil {
		return report, err
	}

	rows, err := m.selectRows(ctx, q, target)
	if err != nil {
		return report, err
	}
	report.Rows = len(rows)

	log := slog.With("table", target.Table)
	if len(rows) == 0 {
		log.Info("no rows to process")
		return report, nil
	}
	log.Info("found rows", "count", len(rows))

	update := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?", target.Table, target.URLColumn, target.IDColumn)

	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		switch m.classifier.Classify(r.url) {
		case KindLocal:
			report.add(OutcomeSkippedLocal)
			continue
		case KindExternal:
		default:
			report.add(OutcomeSkippedNotExternal)
			continue
		}

		log.Info("processing row", "id", r.id, "url", r.url)

		asset, err := m.fetcher.Fetch(ctx, r.url)
		if err != nil {
			log.Warn("skipped, download failed", "id", r.id, "url", r.url, "error", err)
			report.add(OutcomeSkippedDownloadFailed)
			continue
		}

		localPath, err := m.store.Save(asset, m.namer.Name(r.url, ""))
		if err != nil {
			log.Error("skipped, failed to store image", "id", r.id, "url", r.url, "error", err)
			report.add(OutcomeSkippedWriteFailed)
			continue
		}

		if _, err := q.Exec(ctx, update, localPath, r.id); err != nil {
			return report, fmt.Errorf("update %s %s=%v: %w", target.Table, target.IDColumn, r.id, err)
		}

		report.add(OutcomeUpdated)
		report.Bytes += asset.Size()
		log.Info("localized image",
			"id", r.id,
			"path", localPath,
			"bytes", asset.Size(),
			"content_type", asset.ContentType,
			"format", asset.Format,
			"width", asset.Width,
			"height", asset.Height)
	}

	return report, nil
}

// selectRows reads all candidate rows up front so no cursor is open while
// updates run on the same connection.
func (m *Migrator) selectRows(ctx context.Context, q storage.Querier, target Target) ([]row, error) {
	query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IS NOT NULL AND %s != ''",
		target.IDColumn, target.URLColumn, target.Table, target.URLColumn, target.URLColumn)
	if target.Filter != "" {
		query += " AND (" + target.Filter + ")"
	}

	rs, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", target.Table, err)
	}
	defer rs.Close()

	var rows []row
	for rs.Next() {
		var id any
		var url sql.NullString
		if err := rs.Scan(&id, &url); err != nil {
			return nil, fmt.Errorf("scan %s: %w", target.Table, err)
		}
		if b, ok := id.([]byte); ok {
			id = string(b)
		}
		rows = append(rows, row{id: id, url: url.String})
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", target.Table, err)
	}
	return rows, nil
}

// Run migrates all targets in one transaction: committed when every table
// succeeds, rolled back on the first error.
func (m *Migrator) Run(ctx context.Context, db Transactor, targets []Target) (Summary, error) {
	var summary Summary

	err := db.WithTransaction(ctx, func(c storage.Client) error {
		for _, target := range targets {
			report, err := m.MigrateTable(ctx, c, target)
			summary.Tables = append(summary.Tables, report)
			if err != nil {
				return fmt.Errorf("migrate %s: %w", target.Table, err)
			}
		}
		return nil
	})
	summary.Committed = err == nil
	return summary, err
}
