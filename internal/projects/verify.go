// Package projects reports on the project tables after a data import.
package projects

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/Keranthos/softeng-platform/storage"
)

// ResourceType is the comments.resource_type value for projects.
const ResourceType = "project"

const (
	sampleProjects = 5
	sampleTech     = 10
	sampleComments = 3

	descriptionWidth = 50
	commentWidth     = 40
)

type Project struct {
	ID          int64
	Name        string
	Category    string
	Description string
	// Status is empty when the status column has not been added yet.
	Status string
}

type Tech struct {
	ProjectID int64
	Tech      string
}

type Comment struct {
	ID        int64
	ProjectID int64
	Content   string
	LoveCount int64
}

type Counts struct {
	Projects  int
	TechStack int
	Images    int
	Authors   int
	Comments  int
}

type Report struct {
	Projects []Project
	Tech     []Tech
	Comments []Comment
	Counts   Counts
	// HasStatus reports whether projects.status exists.
	HasStatus bool
}

// Verify samples the project tables and counts their rows.
func Verify(ctx context.Context, q storage.Querier) (Report, error) {
	var report Report

	hasStatus, err := q.Dialect().ColumnExists(ctx, q, "projects", "status")
	if err != nil {
		return report, fmt.Errorf("check status column: %w", err)
	}
	report.HasStatus = hasStatus

	if report.Projects, err = sampleProjectRows(ctx, q, hasStatus); err != nil {
		return report, err
	}
	if report.Tech, err = sampleTechRows(ctx, q); err != nil {
		return report, err
	}
	if report.Comments, err = sampleCommentRows(ctx, q); err != nil {
		return report, err
	}

	counts := []struct {
		dst   *int
		query string
		args  []any
	}{
		{&report.Counts.Projects, "SELECT COUNT(*) FROM projects", nil},
		{&report.Counts.TechStack, "SELECT COUNT(*) FROM project_tech_stack", nil},
		{&report.Counts.Images, "SELECT COUNT(*) FROM project_images", nil},
		{&report.Counts.Authors, "SELECT COUNT(*) FROM project_authors", nil},
		{&report.Counts.Comments, "SELECT COUNT(*) FROM comments WHERE resource_type = ? AND deleted_at IS NULL", []any{ResourceType}},
	}
	for _, c := range counts {
		if err := q.QueryRow(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return report, fmt.Errorf("count %q: %w", c.query, err)
		}
	}
	return report, nil
}

func sampleProjectRows(ctx context.Context, q storage.Querier, hasStatus bool) ([]Project, error) {
	status := "''"
	if hasStatus {
		status = "COALESCE(status, '')"
	}
	rows, err := q.Query(ctx,
		"SELECT project_id, name, category, description, "+status+" FROM projects ORDER BY project_id LIMIT ?",
		sampleProjects)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		var desc sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &desc, &p.Status); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.Description = truncate(desc.String, descriptionWidth)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func sampleTechRows(ctx context.Context, q storage.Querier) ([]Tech, error) {
	rows, err := q.Query(ctx,
		"SELECT project_id, tech FROM project_tech_stack ORDER BY project_id, tech LIMIT ?", sampleTech)
	if err != nil {
		return nil, fmt.Errorf("query tech stack: %w", err)
	}
	defer rows.Close()

	var tech []Tech
	for rows.Next() {
		var t Tech
		if err := rows.Scan(&t.ProjectID, &t.Tech); err != nil {
			return nil, fmt.Errorf("scan tech stack: %w", err)
		}
		tech = append(tech, t)
	}
	return tech, rows.Err()
}

func sampleCommentRows(ctx context.Context, q storage.Querier) ([]Comment, error) {
	rows, err := q.Query(ctx,
		`SELECT comment_id, resource_id, content, love_count FROM comments
		WHERE resource_type = ? AND deleted_at IS NULL ORDER BY comment_id LIMIT ?`,
		ResourceType, sampleComments)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		var content sql.NullString
		if err := rows.Scan(&c.ID, &c.ProjectID, &content, &c.LoveCount); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.Content = truncate(content.String, commentWidth)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// truncate cuts s to width runes and marks the cut with "...".
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width]) + "..."
}

// WriteReport prints the verification report.
func WriteReport(w io.Writer, r Report) {
	fmt.Fprintf(w, "Projects (first %d):\n", sampleProjects)
	for _, p := range r.Projects {
		fmt.Fprintf(w, "  id=%d name=%s category=%s\n", p.ID, p.Name, p.Category)
		fmt.Fprintf(w, "    description: %s\n", p.Description)
		if r.HasStatus {
			fmt.Fprintf(w, "    status: %s\n", p.Status)
		}
	}
	if !r.HasStatus {
		fmt.Fprintln(w, "  [WARNING] projects.status is missing; run add-project-status-fields")
	}

	fmt.Fprintf(w, "\nTech stack (first %d):\n", sampleTech)
	for _, t := range r.Tech {
		fmt.Fprintf(w, "  project=%d tech=%s\n", t.ProjectID, t.Tech)
	}

	fmt.Fprintf(w, "\nProject comments (first %d):\n", sampleComments)
	for _, c := range r.Comments {
		fmt.Fprintf(w, "  id=%d project=%d loves=%d: %s\n", c.ID, c.ProjectID, c.LoveCount, c.Content)
	}

	fmt.Fprintln(w, "\nTotals:")
	fmt.Fprintf(w, "  projects: %d\n", r.Counts.Projects)
	fmt.Fprintf(w, "  tech stack: %d\n", r.Counts.TechStack)
	fmt.Fprintf(w, "  images: %d\n", r.Counts.Images)
	fmt.Fprintf(w, "  authors: %d\n", r.Counts.Authors)
	fmt.Fprintf(w, "  comments: %d\n", r.Counts.Comments)
}
