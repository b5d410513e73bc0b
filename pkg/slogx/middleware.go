package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/dide/pkg/idx"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// HTTPMiddleware tags each request with an id, stores a request logger in
// its context and logs one line when the request completes. A caller
// supplied id is only kept when it parses as a ULID.
func HTTPMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()

			id, err := idx.Parse(r.Header.Get(RequestIDHeader))
			if err != nil {
				id = idx.New()
			}
			w.Header().Set(RequestIDHeader, id.String())

			logger := base.With(
				slog.String("req_id", id.String()),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r.WithContext(WithContext(r.Context(), logger)))

			logger.LogAttrs(r.Context(), levelFor(sw.code()), "http_request",
				slog.Int("status", sw.code()),
				slog.Int("bytes", sw.written),
				slog.Int64("duration_ms", time.Since(began).Milliseconds()),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			)
		})
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

type statusWriter struct {
	http.ResponseWriter
	status  int
	written int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}

func (w *statusWriter) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}
