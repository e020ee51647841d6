package httpmiddleware

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/pgzip"
)

var gzipWriters = sync.Pool{
	New: func() any { return pgzip.NewWriter(io.Discard) },
}

type gzipResponseWriter struct {
	http.ResponseWriter
	gz     *pgzip.Writer
	status int
}

func (g *gzipResponseWriter) WriteHeader(code int) {
	if g.status == 0 {
		g.status = code
	}
}

func (g *gzipResponseWriter) Write(b []byte) (int, error) {
	if g.gz == nil {
		h := g.Header()
		h.Del("Content-Length")
		h.Set("Content-Encoding", "gzip")
		if g.status == 0 {
			g.status = http.StatusOK
		}
		g.ResponseWriter.WriteHeader(g.status)

		g.gz = gzipWriters.Get().(*pgzip.Writer)
		g.gz.Reset(g.ResponseWriter)
	}
	return g.gz.Write(b)
}

// finish flushes the compressed stream, or the bare status when nothing was
// written.
func (g *gzipResponseWriter) finish() {
	if g.gz == nil {
		if g.status != 0 {
			g.ResponseWriter.WriteHeader(g.status)
		}
		return
	}
	_ = g.gz.Close()
	gzipWriters.Put(g.gz)
}

// Gzip decompresses gzip request bodies and compresses responses for clients
// that accept gzip.
func Gzip() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.Contains(r.Header.Get("Content-Encoding"), "gzip") {
				zr, err := pgzip.NewReader(r.Body)
				if err != nil {
					writeError(w, http.StatusBadRequest, "malformed gzip body")
					return
				}
				defer zr.Close()
				r.Body = zr
				r.Header.Del("Content-Encoding")
				r.ContentLength = -1
			}

			w.Header().Add("Vary", "Accept-Encoding")
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				next.ServeHTTP(w, r)
				return
			}

			// No defer: a panicking handler must not get a terminated
			// stream that looks complete.
			gw := &gzipResponseWriter{ResponseWriter: w}
			next.ServeHTTP(gw, r)
			gw.finish()
		})
	}
}
