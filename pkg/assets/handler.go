package assets

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
)

// CacheControl selects the caching headers Handler sets.
type CacheControl int

const (
	// CacheControlNone disables caching, for development.
	CacheControlNone CacheControl = iota
	// CacheControlProduction caches fingerprinted files for a year and
	// everything else for an hour with revalidation.
	CacheControlProduction
)

// HandlerConfig configures Handler.
type HandlerConfig struct {
	CacheControl CacheControl
	// Headers are set on every successful response.
	Headers map[string]string
	// OnError is called for source failures other than not-found.
	OnError func(r *http.Request, err error)
}

// Handler serves assets from src. The request path, with any mount prefix
// already stripped, is the asset name. Only GET and HEAD are allowed.
func Handler(src Source, cfg HandlerConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		name := strings.TrimPrefix(r.URL.Path, "/")
		if strings.HasPrefix(r.URL.Path, "//") {
			http.NotFound(w, r)
			return
		}
		rc, info, err := src.Open(r.Context(), name)
		if err != nil {
			if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalidName) && cfg.OnError != nil {
				cfg.OnError(r, err)
			}
			http.NotFound(w, r)
			return
		}
		defer rc.Close()

		applyCacheHeaders(w, cfg.CacheControl, info.Name)
		for k, v := range cfg.Headers {
			w.Header().Set(k, v)
		}
		if info.ContentType != "" {
			w.Header().Set("Content-Type", info.ContentType)
		}
		if info.ETag != "" {
			w.Header().Set("ETag", info.ETag)
		}

		if rs, ok := rc.(io.ReadSeeker); ok {
			http.ServeContent(w, r, info.Name, info.ModTime, rs)
			return
		}

		if info.Size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
		}
		if !info.ModTime.IsZero() {
			w.Header().Set("Last-Modified", info.ModTime.UTC().Format(http.TimeFormat))
		}
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		_, _ = io.Copy(w, rc)
	})
}

func applyCacheHeaders(w http.ResponseWriter, cc CacheControl, name string) {
	switch cc {
	case CacheControlNone:
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	case CacheControlProduction:
		if isFingerprinted(name) {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
		}
	}
}

// isFingerprinted reports whether name carries a hash segment of at least
// eight hex characters before its extension, e.g. "app.a1b2c3d4.css".
func isFingerprinted(name string) bool {
	parts := strings.Split(path.Base(name), ".")
	if len(parts) < 3 {
		return false
	}
	hash := parts[len(parts)-2]
	if len(hash) < 8 {
		return false
	}
	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
