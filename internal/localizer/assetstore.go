package localizer

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// AssetStore writes assets under a root directory and maps them to the
// public paths stored in the database.
type AssetStore struct {
	root         string
	publicPrefix string
	// partition by year/month to bound directory size
	partition bool

	now func() time.Time
}

func NewAssetStore(root, publicPrefix string, partition bool) *AssetStore {
	return &AssetStore{
		root:         root,
		publicPrefix: strings.TrimSuffix(publicPrefix, "/"),
		partition:    partition,
		now:          time.Now,
	}
}

// Sub returns a store rooted at a subdirectory, e.g. "common".
func (s *AssetStore) Sub(dir string, partition bool) *AssetStore {
	return &AssetStore{
		root:         filepath.Join(s.root, dir),
		publicPrefix: s.publicPrefix + "/" + dir,
		partition:    partition,
		now:          s.now,
	}
}

func (s *AssetStore) Root() string {
	return s.root
}

// Lookup returns the public path of name when it is already stored.
func (s *AssetStore) Lookup(name string) (string, bool) {
	if !validName(name) {
		return "", false
	}
	rel := s.partitionDirs()
	info, err := os.Stat(filepath.Join(append(append([]string{s.root}, rel...), name)...))
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return s.publicPath(rel, name), true
}

// Save writes the asset as name and returns its public path. Existing files
// are never overwritten; the error then matches fs.ErrExist.
func (s *AssetStore) Save(asset *Asset, name string) (string, error) {
	if !validName(name) {
		return "", fmt.Errorf("invalid asset filename %q", name)
	}

	rel := s.partitionDirs()
	dir := filepath.Join(append([]string{s.root}, rel...)...)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	filePath := filepath.Join(dir, name)
	dst, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	if _, err := dst.Write(asset.Data); err != nil {
		dst.Close()
		os.Remove(filePath) // Clean up on error
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("close file: %w", err)
	}

	return s.publicPath(rel, name), nil
}

func (s *AssetStore) partitionDirs() []string {
	if !s.partition {
		return nil
	}
	now := s.now()
	return []string{now.Format("2006"), now.Format("01")}
}

func (s *AssetStore) publicPath(rel []string, name string) string {
	return path.Join(append([]string{s.publicPrefix}, append(rel, name)...)...)
}

func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, `/\`)
}
