package localizer

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Keranthos/softeng-platform/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Upload.Root = t.TempDir()
	cfg.Upload.PublicPrefix = "/uploads/images"
	cfg.Upload.MaxSize = 5 * 1024 * 1024
	cfg.Download.Timeout = 5 * time.Second
	cfg.Download.MaxRetries = 3
	cfg.Download.RetryDelay = time.Millisecond
	cfg.Download.UserAgent = "Mozilla/5.0 (test)"
	return cfg
}

// imageServer serves canned responses and counts requests per path.
type imageServer struct {
	*httptest.Server

	mu   sync.Mutex
	hits map[string]int
}

func newImageServer(t *testing.T, routes map[string]http.HandlerFunc) *imageServer {
	t.Helper()
	s := &imageServer{hits: map[string]int{}}
	mux := http.NewServeMux()
	for path, h := range routes {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			s.hits[r.URL.Path]++
			s.mu.Unlock()
			h(w, r)
		})
	}
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *imageServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *imageServer) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.hits {
		n += v
	}
	return n
}

func serveBytes(contentType string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write(body)
	}
}

func serveStatus(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(code), code)
	}
}
