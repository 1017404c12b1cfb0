package merge

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Keranthos/softeng-platform/storage"
)

type Duplicate struct {
	Name  string
	Count int
}

// ToolStats is a tool after merging, with live comment and collection counts.
type ToolStats struct {
	Tool
	Comments        int
	CollectionCount int
}

type CategoryCount struct {
	Category string
	Count    int
}

type VerifyReport struct {
	Duplicates []Duplicate
	Tools      []ToolStats
	Total      int
	Categories []CategoryCount
}

// Verify checks that no tool name is duplicated and reports the state of
// the named tools.
func Verify(ctx context.Context, q storage.Querier, names []string) (VerifyReport, error) {
	var report VerifyReport

	rows, err := q.Query(ctx,
		"SELECT resource_name, COUNT(*) FROM tools GROUP BY resource_name HAVING COUNT(*) > 1 ORDER BY resource_name")
	if err != nil {
		return report, fmt.Errorf("query duplicates: %w", err)
	}
	for rows.Next() {
		var d Duplicate
		if err := rows.Scan(&d.Name, &d.Count); err != nil {
			rows.Close()
			return report, fmt.Errorf("scan duplicate: %w", err)
		}
		report.Duplicates = append(report.Duplicates, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return report, err
	}

	if len(names) > 0 {
		tools, err := namedTools(ctx, q, names)
		if err != nil {
			return report, err
		}
		for _, t := range tools {
			s := ToolStats{Tool: t}
			if err := q.QueryRow(ctx,
				"SELECT COUNT(*) FROM comments WHERE resource_type = ? AND resource_id = ? AND deleted_at IS NULL",
				ResourceType, t.ID).Scan(&s.Comments); err != nil {
				return report, fmt.Errorf("count comments for tool %d: %w", t.ID, err)
			}
			if err := q.QueryRow(ctx,
				"SELECT COUNT(*) FROM collections WHERE resource_type = ? AND resource_id = ?",
				ResourceType, t.ID).Scan(&s.CollectionCount); err != nil {
				return report, fmt.Errorf("count collections for tool %d: %w", t.ID, err)
			}
			report.Tools = append(report.Tools, s)
		}
	}

	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM tools").Scan(&report.Total); err != nil {
		return report, fmt.Errorf("count tools: %w", err)
	}

	rows, err = q.Query(ctx, "SELECT category, COUNT(*) FROM tools GROUP BY category ORDER BY category")
	if err != nil {
		return report, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return report, fmt.Errorf("scan category: %w", err)
		}
		report.Categories = append(report.Categories, c)
	}
	return report, rows.Err()
}

func namedTools(ctx context.Context, q storage.Querier, names []string) ([]Tool, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}

	rows, err := q.Query(ctx,
		"SELECT resource_id, resource_name, category, views, collections, loves FROM tools WHERE resource_name IN ("+placeholders+") ORDER BY resource_name, resource_id",
		args...)
	if err != nil {
		return nil, fmt.Errorf("query tools: %w", err)
	}
	defer rows.Close()

	var tools []Tool
	for rows.Next() {
		var t Tool
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.Views, &t.Collections, &t.Loves); err != nil {
			return nil, fmt.Errorf("scan tool: %w", err)
		}
		tools = append(tools, t)
	}
	return tools, rows.Err()
}

// GroupNames returns the tool names of groups.
func GroupNames(groups []Group) []string {
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}
	return names
}

func (r VerifyReport) OK() bool {
	return len(r.Duplicates) == 0
}

// WriteReport prints the verification report.
func WriteReport(w io.Writer, r VerifyReport) {
	fmt.Fprintln(w, "Merge verification")
	fmt.Fprintln(w)
	if r.OK() {
		fmt.Fprintln(w, "[OK] no duplicate tools")
	} else {
		fmt.Fprintln(w, "[WARNING] duplicate tools remain:")
		for _, d := range r.Duplicates {
			fmt.Fprintf(w, "  %s: %d records\n", d.Name, d.Count)
		}
	}

	if len(r.Tools) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Merged tools:")
		for _, t := range r.Tools {
			fmt.Fprintf(w, "  id=%d name=%s category=%s views=%d loves=%d comments=%d collections=%d\n",
				t.ID, t.Name, t.Category, t.Views, t.Loves, t.Comments, t.CollectionCount)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total tools: %d\n", r.Total)
	fmt.Fprintln(w, "By category:")
	for _, c := range r.Categories {
		fmt.Fprintf(w, "  %s: %d\n", c.Category, c.Count)
	}
}

// WriteResults prints what Run changed.
func WriteResults(w io.Writer, results []Result) {
	for _, r := range results {
		fmt.Fprintf(w, "%s: kept id=%d views=%d loves=%d collections=%d\n",
			r.Group.Name, r.Kept.ID, r.Views, r.Loves, r.Collections)
		for _, rm := range r.Removed {
			fmt.Fprintf(w, "  removed id=%d (%s): comments=%d collections=%d likes=%d tags=%d images=%d contributors=%d\n",
				rm.Tool.ID, rm.Tool.Category, rm.CommentsMoved, rm.CollectionsMoved, rm.LikesMoved,
				rm.TagsDeleted, rm.ImagesDeleted, rm.ContributorsDeleted)
		}
		for _, id := range r.Missing {
			fmt.Fprintf(w, "  skipped id=%d (not found)\n", id)
		}
	}
}
