// Package merge folds duplicate tool rows into one surviving record.
package merge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Keranthos/softeng-platform/storage"
)

// ResourceType is the resource_type value that comments, collections and
// likes use for tools.
const ResourceType = "tool"

// Group names one duplicated tool: Keep survives, Remove are folded into it.
type Group struct {
	Name   string
	Keep   int64
	Remove []int64
}

// DefaultGroups are the duplicates found in the production catalogue.
var DefaultGroups = []Group{
	{Name: "ChatGPT", Keep: 121, Remove: []int64{113}},
	{Name: "Figma", Keep: 114, Remove: []int64{110}},
	{Name: "GitHub Copilot", Keep: 107, Remove: []int64{122}},
}

// ErrToolNotFound is returned when the surviving tool of a group is missing.
var ErrToolNotFound = errors.New("tool not found")

// Tool is the subset of a tools row the merge reads.
type Tool struct {
	ID          int64
	Name        string
	Category    string
	Views       int64
	Collections int64
	Loves       int64
}

// Removed records what was reassigned and deleted for one duplicate.
type Removed struct {
	Tool                Tool
	CommentsMoved       int64
	CollectionsMoved    int64
	LikesMoved          int64
	TagsDeleted         int64
	ImagesDeleted       int64
	ContributorsDeleted int64
}

// Result is the outcome of merging one group.
type Result struct {
	Group       Group
	Kept        Tool
	Removed     []Removed
	Missing     []int64
	Views       int64
	Loves       int64
	Collections int64
}

type Merger struct{}

func NewMerger() *Merger {
	return &Merger{}
}

func getTool(ctx context.Context, q storage.Querier, id int64) (*Tool, error) {
	var t Tool
	err := q.QueryRow(ctx,
		"SELECT resource_id, resource_name, category, views, collections, loves FROM tools WHERE resource_id = ?",
		id).Scan(&t.ID, &t.Name, &t.Category, &t.Views, &t.Collections, &t.Loves)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tool %d: %w", id, err)
	}
	return &t, nil
}

// Merge folds every Remove tool of g into Keep. Views take the maximum,
// loves are summed, and collections are recounted from the collections
// table once references have moved.
func (m *Merger) Merge(ctx context.Context, q storage.Querier, g Group) (Result, error) {
	result := Result{Group: g}
	log := slog.With("tool", g.Name, "keep", g.Keep)

	kept, err := getTool(ctx, q, g.Keep)
	if err != nil {
		return result, err
	}
	if kept == nil {
		return result, fmt.Errorf("%w: keep id %d for %q", ErrToolNotFound, g.Keep, g.Name)
	}
	result.Kept = *kept
	log.Info("keeping tool", "category", kept.Category, "views", kept.Views, "loves", kept.Loves)

	maxViews := kept.Views
	totalLoves := kept.Loves

	for _, id := range g.Remove {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		dup, err := getTool(ctx, q, id)
		if err != nil {
			return result, err
		}
		if dup == nil {
			log.Warn("duplicate tool not found, skipping", "remove", id)
			result.Missing = append(result.Missing, id)
			continue
		}

		removed, err := m.fold(ctx, q, kept.ID, *dup)
		if err != nil {
			return result, err
		}
		result.Removed = append(result.Removed, removed)

		maxViews = max(maxViews, dup.Views)
		totalLoves += dup.Loves

		log.Info("removed duplicate tool",
			"remove", id,
			"category", dup.Category,
			"comments", removed.CommentsMoved,
			"collections", removed.CollectionsMoved,
			"likes", removed.LikesMoved,
			"tags", removed.TagsDeleted,
			"images", removed.ImagesDeleted,
			"contributors", removed.ContributorsDeleted)
	}

	if _, err := q.Exec(ctx, "UPDATE tools SET views = ?, loves = ? WHERE resource_id = ?", maxViews, totalLoves, kept.ID); err != nil {
		return result, fmt.Errorf("update tool %d: %w", kept.ID, err)
	}

	var collections int64
	if err := q.QueryRow(ctx,
		"SELECT COUNT(*) FROM collections WHERE resource_type = ? AND resource_id = ?",
		ResourceType, kept.ID).Scan(&collections); err != nil {
		return result, fmt.Errorf("count collections for tool %d: %w", kept.ID, err)
	}
	if _, err := q.Exec(ctx, "UPDATE tools SET collections = ? WHERE resource_id = ?", collections, kept.ID); err != nil {
		return result, fmt.Errorf("update collections for tool %d: %w", kept.ID, err)
	}

	result.Views = maxViews
	result.Loves = totalLoves
	result.Collections = collections
	log.Info("merge complete", "views", maxViews, "loves", totalLoves, "collections", collections)
	return result, nil
}

// fold moves references from dup to keepID, then deletes dup and its rows.
func (m *Merger) fold(ctx context.Context, q storage.Querier, keepID int64, dup Tool) (Removed, error) {
	removed := Removed{Tool: dup}

	moves := []struct {
		table string
		n     *int64
	}{
		{"comments", &removed.CommentsMoved},
		{"collections", &removed.CollectionsMoved},
		{"likes", &removed.LikesMoved},
	}
	for _, mv := range moves {
		n, err := q.Exec(ctx,
			"UPDATE "+mv.table+" SET resource_id = ? WHERE resource_type = ? AND resource_id = ?",
			keepID, ResourceType, dup.ID)
		if err != nil {
			return removed, fmt.Errorf("reassign %s from tool %d: %w", mv.table, dup.ID, err)
		}
		*mv.n = n
	}

	deletes := []struct {
		table string
		n     *int64
	}{
		{"tool_tags", &removed.TagsDeleted},
		{"tool_images", &removed.ImagesDeleted},
		{"tool_contributors", &removed.ContributorsDeleted},
	}
	for _, del := range deletes {
		n, err := q.Exec(ctx, "DELETE FROM "+del.table+" WHERE tool_id = ?", dup.ID)
		if err != nil {
			return removed, fmt.Errorf("delete %s of tool %d: %w", del.table, dup.ID, err)
		}
		*del.n = n
	}

	if _, err := q.Exec(ctx, "DELETE FROM tools WHERE resource_id = ?", dup.ID); err != nil {
		return removed, fmt.Errorf("delete tool %d: %w", dup.ID, err)
	}
	return removed, nil
}

// Transactor runs a function inside one database transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(storage.Client) error) error
}

// Run merges all groups in one transaction. Any error rolls back every
// group.
func Run(ctx context.Context, db Transactor, groups []Group) ([]Result, error) {
	m := NewMerger()
	var results []Result

	err := db.WithTransaction(ctx, func(c storage.Client) error {
		for _, g := range groups {
			r, err := m.Merge(ctx, c, g)
			if err != nil {
				return fmt.Errorf("merge %q: %w", g.Name, err)
			}
			results = append(results, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
