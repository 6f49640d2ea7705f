package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// GzipConfig configures response compression
type GzipConfig struct {
	Level             int
	ExcludedPaths     []string
	CompressibleTypes []string
}

// DefaultGzipConfig compresses JSON and XML at the default level
func DefaultGzipConfig() *GzipConfig {
	return &GzipConfig{
		Level:         gzip.DefaultCompression,
		ExcludedPaths: []string{"/health", "/metrics"},
		CompressibleTypes: []string{
			"application/json",
			"application/xml",
			"text/",
		},
	}
}

// gzipResponseWriter decides on the first write whether the body is
// compressible, from the Content-Type the handler set.
type gzipResponseWriter struct {
	http.ResponseWriter
	pool        *sync.Pool
	gz          *gzip.Writer
	types       []string
	wroteHeader bool
}

func (w *gzipResponseWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	if statusCode != http.StatusNoContent && statusCode != http.StatusNotModified &&
		w.Header().Get("Content-Encoding") == "" && compressible(w.Header().Get("Content-Type"), w.types) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		w.Header().Del("Content-Length")

		w.gz = w.pool.Get().(*gzip.Writer)
		w.gz.Reset(w.ResponseWriter)
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", http.DetectContentType(b))
		}
		w.WriteHeader(http.StatusOK)
	}
	if w.gz != nil {
		return w.gz.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

func (w *gzipResponseWriter) close() error {
	if w.gz == nil {
		return nil
	}
	err := w.gz.Close()
	w.pool.Put(w.gz)
	w.gz = nil
	return err
}

// Gzip compresses responses for clients that accept gzip
func Gzip(cfg *GzipConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	pool := &sync.Pool{
		New: func() interface{} {
			gz, err := gzip.NewWriterLevel(io.Discard, cfg.Level)
			if err != nil {
				gz = gzip.NewWriter(io.Discard)
			}
			return gz
		},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") || excluded(r.URL.Path, cfg.ExcludedPaths) {
				next.ServeHTTP(w, r)
				return
			}

			gw := &gzipResponseWriter{ResponseWriter: w, pool: pool, types: cfg.CompressibleTypes}
			defer func() {
				if err := gw.close(); err != nil {
					logger.Debug("Failed to flush compressed response",
						zap.String("path", r.URL.Path),
						zap.Error(err),
					)
				}
			}()
			next.ServeHTTP(gw, r)
		})
	}
}

func compressible(contentType string, types []string) bool {
	for _, prefix := range types {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

func excluded(path string, paths []string) bool {
	for _, p := range paths {
		if path == p {
			return true
		}
	}
	return false
}
