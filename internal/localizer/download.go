package localizer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Keranthos/softeng-platform/internal/config"
	"github.com/sethvargo/go-retry"
	_ "golang.org/x/image/webp"
)

// Asset is a downloaded image held in memory until it is stored.
type Asset struct {
	URL         string
	ContentType string
	Data        []byte

	// Format, Width and Height are set when the payload decodes as a raster
	// image; .ico and .svg payloads leave them empty.
	Format string
	Width  int
	Height int
}

func (a *Asset) Size() int64 {
	return int64(len(a.Data))
}

// RejectedError marks a response that was received but failed validation.
// It is never retried.
type RejectedError struct {
	URL    string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected %s: %s", e.URL, e.Reason)
}

// IsRejected reports whether err is a validation rejection.
func IsRejected(err error) bool {
	var rejected *RejectedError
	return errors.As(err, &rejected)
}

// Downloader fetches remote images with a bounded retry policy.
type Downloader struct {
	client     *http.Client
	maxSize    int64
	attempts   int
	retryDelay time.Duration
	userAgent  string
}

func NewDownloader(cfg *config.Config) *Downloader {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// Remote image hosts frequently serve broken certificate chains; the
	// fetch is read-only.
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec

	return &Downloader{
		client: &http.Client{
			Timeout:   cfg.Download.Timeout,
			Transport: transport,
		},
		maxSize:    cfg.Upload.MaxSize,
		attempts:   cfg.Download.MaxRetries,
		retryDelay: cfg.Download.RetryDelay,
		userAgent:  cfg.Download.UserAgent,
	}
}

// Fetch downloads imageURL. Transport errors, read errors and non-2xx
// statuses are retried; a *RejectedError is returned immediately.
func (d *Downloader) Fetch(ctx context.Context, imageURL string) (*Asset, error) {
	var asset *Asset
	attempt := 0

	backoff := retry.WithMaxRetries(uint64(d.attempts-1), retry.NewConstant(d.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		a, err := d.fetchOnce(ctx, imageURL)
		if err == nil {
			asset = a
			return nil
		}
		if IsRejected(err) || ctx.Err() != nil {
			return err
		}
		if attempt < d.attempts {
			slog.Warn("download failed, retrying",
				"url", imageURL,
				"attempt", attempt,
				"max_attempts", d.attempts,
				"retry_in", d.retryDelay,
				"error", err)
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		if IsRejected(err) {
			return nil, err
		}
		return nil, fmt.Errorf("download failed after %d attempts: %w", attempt, err)
	}
	return asset, nil
}

func (d *Downloader) fetchOnce(ctx context.Context, imageURL string) (*Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Set headers to look like a browser
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	if ref := referer(imageURL); ref != "" {
		req.Header.Set("Referer", ref)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return nil, &RejectedError{URL: imageURL, Reason: fmt.Sprintf("not an image (%q)", contentType)}
	}

	if resp.ContentLength > d.maxSize {
		return nil, &RejectedError{URL: imageURL, Reason: fmt.Sprintf("too large (%d bytes declared)", resp.ContentLength)}
	}

	// Read one byte past the cap so an oversize stream is detectable
	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > d.maxSize {
		return nil, &RejectedError{URL: imageURL, Reason: fmt.Sprintf("too large (over %d bytes)", d.maxSize)}
	}

	asset := &Asset{
		URL:         imageURL,
		ContentType: contentType,
		Data:        data,
	}
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		asset.Format = format
		asset.Width = cfg.Width
		asset.Height = cfg.Height
	}
	return asset, nil
}

// referer returns the scheme and host of rawURL.
func referer(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
