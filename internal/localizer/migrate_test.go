package localizer

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Keranthos/softeng-platform/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *storage.Storage {
	t.Helper()
	s, cleanup, err := storage.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return s
}

func mustExec(t *testing.T, s *storage.Storage, query string, args ...any) {
	t.Helper()
	_, err := s.Exec(context.Background(), query, args...)
	require.NoError(t, err)
}

func urlOf(t *testing.T, s *storage.Storage, query string, id int) string {
	t.Helper()
	var v string
	require.NoError(t, s.QueryRow(context.Background(), query, id).Scan(&v))
	return v
}

var toolImages = Target{Table: "tool_images", IDColumn: "id", URLColumn: "image_url"}

func TestRun_LocalizesExternalImage(t *testing.T) {
	s := newTestStore(t)
	srv := newImageServer(t, map[string]http.HandlerFunc{
		"/a.png": serveBytes("image/png", []byte("0123456789")),
	})
	mustExec(t, s, "INSERT INTO tool_images (id, tool_id, image_url) VALUES (?, ?, ?)", 42, 1, srv.URL+"/a.png")
	mustExec(t, s, "INSERT INTO tool_images (id, tool_id, image_url) VALUES (?, ?, ?)", 7, 1, "")

	cfg := testConfig(t)
	m := NewMigrator(cfg, NewDownloader(cfg))

	summary, err := m.Run(context.Background(), s, []Target{toolImages})
	require.NoError(t, err)
	require.True(t, summary.Committed)

	got := urlOf(t, s, "SELECT image_url FROM tool_images WHERE id = ?", 42)
	assert.Regexp(t, `^/uploads/images/\d{4}/\d{2}/[0-9a-f]{16}\.png$`, got)

	rel := strings.TrimPrefix(got, "/uploads/images/")
	data, err := os.ReadFile(filepath.Join(cfg.Upload.Root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Len(t, data, 10)

	total := summary.Total()
	assert.Equal(t, 1, total.Rows, "empty urls are not selected")
	assert.Equal(t, 1, total.Updated())
	assert.Equal(t, 0, total.Skipped())
	assert.Equal(t, int64(10), total.Bytes)

	// the empty row is untouched and was never downloaded
	assert.Equal(t, "", urlOf(t, s, "SELECT image_url FROM tool_images WHERE id = ?", 7))
	assert.Equal(t, 1, srv.TotalHits())
}

func TestRun_Idempotent(t *testing.T) {
	s := newTestStore(t)
	srv := newImageServer(t, map[string]http.HandlerFunc{
		"/a.png":  serveBytes("image/png", []byte("a")),
		"/b.jpg":  serveBytes("image/jpeg", []byte("b")),
		"/c.webp": serveBytes("image/webp", []byte("c")),
	})
	mustExec(t, s, "INSERT INTO tool_images (id, tool_id, image_url) VALUES (1, 1, ?), (2, 1, ?)", srv.URL+"/a.png", srv.URL+"/b.jpg")
	mustExec(t, s, "INSERT INTO courses (course_id, name, cover) VALUES (10, '软件工程', ?)", srv.URL+"/c.webp")

	cfg := testConfig(t)
	m := NewMigrator(cfg, NewDownloader(cfg))
	targets := []Target{toolImages, {Table: "courses", IDColumn: "course_id", URLColumn: "cover"}}

	first, err := m.Run(context.Background(), s, targets)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Total().Updated())
	hitsAfterFirst := srv.TotalHits()
	assert.Equal(t, 3, hitsAfterFirst)

	second, err := m.Run(context.Background(), s, targets)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Total().Updated())
	assert.Equal(t, 3, second.Total().Count(OutcomeSkippedLocal))
	assert.Equal(t, hitsAfterFirst, srv.TotalHits(), "second run must not download anything")
}

func TestMigrateTable_DownloadFailureLeavesRow(t *testing.T) {
	s := newTestStore(t)
	srv := newImageServer(t, map[string]http.HandlerFunc{
		"/missing.png": serveStatus(http.StatusNotFound),
	})
	original := srv.URL + "/missing.png"
	mustExec(t, s, "INSERT INTO tool_images (id, tool_id, image_url) VALUES (1, 1, ?)", original)

	cfg := testConfig(t)
	m := NewMigrator(cfg, NewDownloader(cfg))

	report, err := m.MigrateTable(context.Background(), s, toolImages)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Updated())
	assert.Equal(t, 1, report.Count(OutcomeSkippedDownloadFailed))
	assert.Equal(t, 3, srv.Hits("/missing.png"))
	assert.Equal(t, original, urlOf(t, s, "SELECT image_url FROM tool_images WHERE id = ?", 1))
}

func TestMigrateTable_OversizeLeavesRow(t *testing.T) {
	s := newTestStore(t)
	srv := newImageServer(t, map[string]http.HandlerFunc{
		"/huge.png": serveBytes("image/png", make([]byte, 4096)),
	})
	original := srv.URL + "/huge.png"
	mustExec(t, s, "INSERT INTO project_images (id, project_id, image_url) VALUES (3, 1, ?)", original)

	cfg := testConfig(t)
	cfg.Upload.MaxSize = 1024
	m := NewMigrator(cfg, NewDownloader(cfg))

	report, err := m.MigrateTable(context.Background(), s, Target{Table: "project_images", IDColumn: "id", URLColumn: "image_url"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Count(OutcomeSkippedDownloadFailed))
	assert.Equal(t, 1, srv.Hits("/huge.png"), "validation failures are not retried")
	assert.Equal(t, original, urlOf(t, s, "SELECT image_url FROM project_images WHERE id = ?", 3))
}

func TestMigrateTable_SkipsLocalAndInvalid(t *testing.T) {
	s := newTestStore(t)
	mustExec(t, s, "INSERT INTO tool_images (id, tool_id, image_url) VALUES (1, 1, ?), (2, 1, ?), (3, 1, ?)",
		"/uploads/images/2025/01/abc.png",
		"uploads/images/common/x.png",
		"data:image/png;base64,iVBORw0KGgo=")

	fetcher := &countingFetcher{}
	m := NewMigrator(testConfig(t), fetcher)

	report, err := m.MigrateTable(context.Background(), s, toolImages)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 2, report.Count(OutcomeSkippedLocal))
	assert.Equal(t, 1, report.Count(OutcomeSkippedNotExternal))
	assert.Equal(t, 0, fetcher.calls)
}

func TestMigrateTable_Filter(t *testing.T) {
	s := newTestStore(t)
	mustExec(t, s, "INSERT INTO tool_images (id, tool_id, image_url) VALUES (1, 1, ?), (20, 2, ?)",
		"https://example.com/1.png", "https://example.com/20.png")

	fetcher := &countingFetcher{}
	m := NewMigrator(testConfig(t), fetcher)

	target := toolImages
	target.Filter = "tool_id = 2"
	report, err := m.MigrateTable(context.Background(), s, target)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Rows)
	assert.Equal(t, 1, report.Updated())
	assert.Equal(t, []string{"https://example.com/20.png"}, fetcher.urls)
}

func TestMigrateTable_WriteFailureCounted(t *testing.T) {
	s := newTestStore(t)
	mustExec(t, s, "INSERT INTO tool_images (id, tool_id, image_url) VALUES (1, 1, ?)", "https://example.com/a.png")

	cfg := testConfig(t)
	cfg.Upload.Root = filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(cfg.Upload.Root, []byte("x"), 0644))

	m := NewMigrator(cfg, &countingFetcher{})
	report, err := m.MigrateTable(context.Background(), s, toolImages)
	require.NoError(t, err, "filesystem errors do not abort the table")

	assert.Equal(t, 1, report.Count(OutcomeSkippedWriteFailed))
	assert.Equal(t, "https://example.com/a.png", urlOf(t, s, "SELECT image_url FROM tool_images WHERE id = ?", 1))
}

func TestMigrateTable_InvalidIdentifier(t *testing.T) {
	s := newTestStore(t)
	m := NewMigrator(testConfig(t), &countingFetcher{})

	_, err := m.MigrateTable(context.Background(), s, Target{Table: "tool_images; DROP TABLE tools", IDColumn: "id", URLColumn: "image_url"})
	assert.True(t, errors.Is(err, storage.ErrInvalidIdentifier))
}

func TestRun_RollsBackOnStoreFailure(t *testing.T) {
	s := newTestStore(t)
	mustExec(t, s, "INSERT INTO tool_images (id, tool_id, image_url) VALUES (1, 1, ?)", "https://example.com/a.png")

	m := NewMigrator(testConfig(t), &countingFetcher{})
	summary, err := m.Run(context.Background(), s, []Target{
		toolImages,
		{Table: "no_such_table", IDColumn: "id", URLColumn: "image_url"},
	})
	require.Error(t, err)
	assert.False(t, summary.Committed)
	require.Len(t, summary.Tables, 2)
	assert.Equal(t, 1, summary.Tables[0].Updated())

	assert.Equal(t, "https://example.com/a.png", urlOf(t, s, "SELECT image_url FROM tool_images WHERE id = ?", 1),
		"first table update must be rolled back")
}

func TestRun_CancelledContextRollsBack(t *testing.T) {
	s := newTestStore(t)
	mustExec(t, s, "INSERT INTO tool_images (id, tool_id, image_url) VALUES (1, 1, ?)", "https://example.com/a.png")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMigrator(testConfig(t), &countingFetcher{})
	summary, err := m.Run(ctx, s, DefaultTargets)
	require.Error(t, err)
	assert.False(t, summary.Committed)
	assert.Equal(t, "https://example.com/a.png", urlOf(t, s, "SELECT image_url FROM tool_images WHERE id = ?", 1))
}

func TestRun_DefaultTargets(t *testing.T) {
	s := newTestStore(t)
	mustExec(t, s, "INSERT INTO tool_images (id, tool_id, image_url) VALUES (1, 1, 'https://example.com/t.png')")
	mustExec(t, s, "INSERT INTO project_images (id, project_id, image_url) VALUES (1, 1, 'https://example.com/p.png')")
	mustExec(t, s, "INSERT INTO courses (course_id, name, cover) VALUES (1, 'c', 'https://example.com/c.jpg')")
	mustExec(t, s, "INSERT INTO projects (project_id, name, cover) VALUES (1, 'p', 'https://example.com/pc.gif')")

	fetcher := &countingFetcher{}
	m := NewMigrator(testConfig(t), fetcher)

	summary, err := m.Run(context.Background(), s, DefaultTargets)
	require.NoError(t, err)

	require.Len(t, summary.Tables, 4)
	for _, table := range summary.Tables {
		assert.Equal(t, 1, table.Updated(), table.Table)
	}
	assert.Equal(t, 4, summary.Total().Updated())
	assert.Equal(t, 4, fetcher.calls)

	cover := urlOf(t, s, "SELECT cover FROM projects WHERE project_id = ?", 1)
	assert.True(t, strings.HasSuffix(cover, ".gif"), cover)
}

// countingFetcher returns a fixed payload without touching the network.
type countingFetcher struct {
	calls int
	urls  []string
}

func (f *countingFetcher) Fetch(_ context.Context, url string) (*Asset, error) {
	f.calls++
	f.urls = append(f.urls, url)
	return &Asset{URL: url, ContentType: "image/png", Data: []byte("fake")}, nil
}
