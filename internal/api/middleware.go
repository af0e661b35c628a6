package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Problem codes for local API key failures.
const (
	codeAPIKeyMissing = "api_key_missing"
	codeAPIKeyInvalid = "api_key_invalid"
)

// extractBearerToken returns the token from a "Bearer <token>" Authorization
// header, or "" when the header is absent or uses another scheme.
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer " // case-sensitive per RFC 6750
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// AuthMiddleware guards the catalog routes with the local API key the UI
// shell was configured with. Failures answer 401 with a problem code telling
// a missing key apart from a wrong one. The key is never logged or echoed.
func AuthMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token != "" && constantTimeEqual(token, apiKey) {
				next.ServeHTTP(w, r)
				return
			}

			code, detail := codeAPIKeyInvalid, "Local API key rejected"
			if token == "" {
				code, detail = codeAPIKeyMissing, "Local API key required"
			}
			slog.Warn("local api key rejected",
				"component", "api",
				"request_id", middleware.GetReqID(r.Context()),
				"code", code,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_ip", r.RemoteAddr,
			)
			writeProblem(w, r, http.StatusUnauthorized, code, detail)
		})
	}
}

// LoggingMiddleware writes one line per request. Server errors log at error
// and client errors at warn. Catalog reads also report which tier answered.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		attrs := []any{
			"component", "api",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if src := rec.Header().Get(sourceHeader); src != "" {
			attrs = append(attrs, "source", src)
		}
		slog.Log(r.Context(), levelForStatus(rec.status), "request", attrs...)
	})
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// statusRecorder remembers the status and body size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(p []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(p)
	rw.bytes += n
	return n, err
}

// RecoveryMiddleware turns a handler panic into a 500 problem. The panic
// value and stack are logged, never sent.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}
				logPanic(r.Context(), r, recovered)
				WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func logPanic(ctx context.Context, r *http.Request, recovered any) {
	slog.ErrorContext(ctx, "panic recovered",
		"component", "api",
		"request_id", middleware.GetReqID(ctx),
		"method", r.Method,
		"path", r.URL.Path,
		"error", recovered,
		"stack", string(debug.Stack()),
	)
}
