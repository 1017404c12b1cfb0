package localizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/Keranthos/softeng-platform/internal/config"
)

// Site is one entry of the frontend's "common sites" list.
type Site struct {
	Name string
	URL  string
	Icon string
	Desc string
}

// SiteResult is a site with its icon rewritten when the download succeeded.
type SiteResult struct {
	Site
	OriginalIcon string
	Localized    bool
	// Reused is set when the icon was already stored by an earlier run.
	Reused bool
	Err    error
}

// SiteLocalizer stores site icons under <upload root>/common with names
// prefixed by the site name.
type SiteLocalizer struct {
	classifier Classifier
	fetcher    Fetcher
	namer      *Namer
	store      *AssetStore
}

func NewSiteLocalizer(cfg *config.Config, fetcher Fetcher) *SiteLocalizer {
	base := NewAssetStore(cfg.Upload.Root, cfg.Upload.PublicPrefix, false)
	return &SiteLocalizer{
		classifier: NewClassifier(),
		fetcher:    fetcher,
		namer:      NewNamer(".png", false),
		store:      base.Sub("common", false),
	}
}

func (l *SiteLocalizer) Dir() string {
	return l.store.Root()
}

// LocalizeSites downloads every site icon. A failed site keeps its original
// icon URL.
func (l *SiteLocalizer) LocalizeSites(ctx context.Context, sites []Site) []SiteResult {
	results := make([]SiteResult, 0, len(sites))

	for _, site := range sites {
		result := SiteResult{Site: site, OriginalIcon: site.Icon}
		log := slog.With("site", site.Name, "icon", site.Icon)

		switch l.classifier.Classify(site.Icon) {
		case KindExternal:
		case KindLocal:
			log.Info("icon already local")
			results = append(results, result)
			continue
		default:
			result.Err = fmt.Errorf("invalid icon URL %q", site.Icon)
			log.Warn("skipped invalid icon URL")
			results = append(results, result)
			continue
		}

		name := l.namer.Name(site.Icon, site.Name)
		if localPath, ok := l.store.Lookup(name); ok {
			result.Icon = localPath
			result.Localized = true
			result.Reused = true
			log.Info("icon already stored", "path", localPath)
			results = append(results, result)
			continue
		}

		asset, err := l.fetcher.Fetch(ctx, site.Icon)
		if err != nil {
			result.Err = err
			log.Warn("icon download failed", "error", err)
			results = append(results, result)
			continue
		}

		localPath, err := l.store.Save(asset, name)
		if errors.Is(err, fs.ErrExist) {
			if existing, ok := l.store.Lookup(name); ok {
				localPath, err = existing, nil
				result.Reused = true
			}
		}
		if err != nil {
			result.Err = err
			log.Error("failed to store icon", "error", err)
			results = append(results, result)
			continue
		}

		result.Icon = localPath
		result.Localized = true
		log.Info("icon localized", "path", localPath, "bytes", asset.Size())
		results = append(results, result)
	}

	return results
}

// WriteSites prints the results as the frontend store's commonSites array.
func WriteSites(w io.Writer, results []SiteResult) {
	fmt.Fprintln(w, "commonSites: [")
	for i, r := range results {
		comma := ","
		if i == len(results)-1 {
			comma = ""
		}
		fmt.Fprintf(w, "  { name: '%s', url: '%s', icon: '%s', desc: '%s' }%s\n",
			jsEscape(r.Name), jsEscape(r.URL), jsEscape(r.Icon), jsEscape(r.Desc), comma)
	}
	fmt.Fprintln(w, "]")
}

var jsReplacer = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`)

func jsEscape(s string) string {
	return jsReplacer.Replace(s)
}
