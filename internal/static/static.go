// Package static serves the game frontend and its asset directory.
package static

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/xeze-org/arcade-scoreboard/internal/store"
)

// GamesPrefix is the URL path the games directory is mounted under.
const GamesPrefix = "/juegos"

// ObjectSource streams stored assets by key.
type ObjectSource interface {
	Open(ctx context.Context, key string) (io.ReadCloser, store.ObjectInfo, error)
}

// Uploader stores an asset under a key.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// NewRouter serves frontendDir at / and games under GamesPrefix.
func NewRouter(frontendDir string, games http.Handler, accessLog bool) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	if accessLog {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)

	r.Handle(GamesPrefix, http.RedirectHandler(GamesPrefix+"/", http.StatusMovedPermanently))
	r.Handle(GamesPrefix+"/*", http.StripPrefix(GamesPrefix, games))
	r.Handle("/*", http.FileServer(http.Dir(frontendDir)))
	return r
}

// DirHandler serves files from a local directory.
func DirHandler(dir string) http.Handler {
	return http.FileServer(http.Dir(dir))
}

// BucketHandler serves objects from src, keyed by the cleaned request path.
// Directory paths resolve to their index.html.
func BucketHandler(src ObjectSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		key := objectKey(r.URL.Path)
		body, info, err := src.Open(r.Context(), key)
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			slog.Error("open asset", "key", key, "error", err)
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
			return
		}
		defer body.Close()

		ct := info.ContentType
		if ct == "" || ct == "application/octet-stream" {
			if byExt := mime.TypeByExtension(path.Ext(key)); byExt != "" {
				ct = byExt
			}
		}
		if ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		if info.Size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
		}
		if !info.LastModified.IsZero() {
			w.Header().Set("Last-Modified", info.LastModified.UTC().Format(http.TimeFormat))
		}
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		if _, err := io.Copy(w, body); err != nil {
			slog.Warn("stream asset", "key", key, "error", err)
		}
	})
}

func objectKey(urlPath string) string {
	key := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if key == "" || strings.HasSuffix(urlPath, "/") {
		key = path.Join(key, "index.html")
	}
	return key
}

// Publish uploads every regular file under dir, keyed by its slash-separated
// path relative to dir. It returns the number of files uploaded.
func Publish(ctx context.Context, dir string, up Uploader) (int, error) {
	n := 0
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if err := up.Upload(ctx, key, data, contentType(key, data)); err != nil {
			return err
		}
		slog.Debug("asset published", "key", key, "bytes", len(data))
		n++
		return ctx.Err()
	})
	if err != nil {
		return n, fmt.Errorf("publish %s: %w", dir, err)
	}
	return n, nil
}

func contentType(key string, data []byte) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
