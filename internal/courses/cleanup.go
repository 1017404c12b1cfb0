// Package courses removes courses that carry none of the valid categories.
package courses

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/Keranthos/softeng-platform/storage"
)

// ResourceType is the resource_type value comments, collections and likes
// use for courses.
const ResourceType = "course"

// ValidCategories are the four curriculum categories a course must carry
// at least one of.
var ValidCategories = []string{"专必", "专选", "公必", "公选"}

type Course struct {
	ID         int64
	Name       string
	Categories []string
}

func (c Course) HasCategoryIn(valid []string) bool {
	for _, cat := range c.Categories {
		if slices.Contains(valid, cat) {
			return true
		}
	}
	return false
}

// ListCourses returns every course with its sorted categories. Categories
// are grouped here rather than with GROUP_CONCAT so the query stays
// portable.
func ListCourses(ctx context.Context, q storage.Querier) ([]Course, error) {
	rows, err := q.Query(ctx, `
		SELECT c.course_id, c.name, cc.category
		FROM courses c
		LEFT JOIN course_categories cc ON c.course_id = cc.course_id
		ORDER BY c.course_id, cc.category`)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	var courses []Course
	for rows.Next() {
		var (
			id       int64
			name     string
			category *string
		)
		if err := rows.Scan(&id, &name, &category); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		if n := len(courses); n == 0 || courses[n-1].ID != id {
			courses = append(courses, Course{ID: id, Name: name})
		}
		if category != nil {
			last := &courses[len(courses)-1]
			last.Categories = append(last.Categories, strings.TrimSpace(*category))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read courses: %w", err)
	}
	return courses, nil
}

// FindInvalid returns courses with no category or none of valid.
func FindInvalid(ctx context.Context, q storage.Querier, valid []string) ([]Course, error) {
	all, err := ListCourses(ctx, q)
	if err != nil {
		return nil, err
	}
	var invalid []Course
	for _, c := range all {
		if !c.HasCategoryIn(valid) {
			invalid = append(invalid, c)
		}
	}
	return invalid, nil
}

type DeleteResult struct {
	Comments    int64
	Collections int64
	Likes       int64
	Courses     int64
}

// Delete removes the courses together with their categories, comments,
// collections and likes.
func Delete(ctx context.Context, q storage.Querier, ids []int64) (DeleteResult, error) {
	var result DeleteResult
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	idArgs := make([]any, len(ids))
	for i, id := range ids {
		idArgs[i] = id
	}
	typed := append([]any{ResourceType}, idArgs...)

	steps := []struct {
		query string
		args  []any
		n     *int64
	}{
		{"DELETE FROM comments WHERE resource_type = ? AND resource_id IN (" + placeholders + ")", typed, &result.Comments},
		{"DELETE FROM collections WHERE resource_type = ? AND resource_id IN (" + placeholders + ")", typed, &result.Collections},
		{"DELETE FROM likes WHERE resource_type = ? AND resource_id IN (" + placeholders + ")", typed, &result.Likes},
		{"DELETE FROM course_categories WHERE course_id IN (" + placeholders + ")", idArgs, nil},
		{"DELETE FROM courses WHERE course_id IN (" + placeholders + ")", idArgs, &result.Courses},
	}
	for _, step := range steps {
		n, err := q.Exec(ctx, step.query, step.args...)
		if err != nil {
			return result, fmt.Errorf("delete courses: %w", err)
		}
		if step.n != nil {
			*step.n = n
		}
	}
	return result, nil
}

// Transactor runs a function inside one database transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(storage.Client) error) error
}

// DeleteInTx runs Delete in one transaction.
func DeleteInTx(ctx context.Context, db Transactor, ids []int64) (DeleteResult, error) {
	var result DeleteResult
	err := db.WithTransaction(ctx, func(c storage.Client) error {
		var err error
		result, err = Delete(ctx, c, ids)
		return err
	})
	return result, err
}

// Confirm reads one line from r and reports whether it is "yes".
func Confirm(r io.Reader) bool {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "yes")
}

func IDs(courses []Course) []int64 {
	ids := make([]int64, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	return ids
}

// WriteCourses prints one line per course with its categories.
func WriteCourses(w io.Writer, courses []Course) {
	for _, c := range courses {
		cats := "no categories"
		if len(c.Categories) > 0 {
			cats = strings.Join(c.Categories, ", ")
		}
		fmt.Fprintf(w, "  %d: %s (%s)\n", c.ID, c.Name, cats)
	}
}
