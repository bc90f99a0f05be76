package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/tartampluch/birthday-manager/internal/metrics"
)

// requestID tags each request with a uuid, keeping one supplied by a proxy.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(config.HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(config.HeaderRequestID, id)
		}
		w.Header().Set(config.HeaderRequestID, id)
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// observe logs every request and counts it by route pattern, so /api/people/{id}
// stays one series regardless of the id.
func observe(logger *slog.Logger, m *metrics.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			m.RecordHTTPRequest(route, r.Method, rec.status, elapsed)

			logger.InfoContext(r.Context(), config.MsgHTTPRequest,
				slog.String(config.LogKeyMethod, r.Method),
				slog.String(config.LogKeyPath, r.URL.Path),
				slog.String(config.LogKeyRemote, r.RemoteAddr),
				slog.Int(config.LogKeyStatus, rec.status),
				slog.Int64(config.LogKeyDuration, elapsed.Milliseconds()),
				slog.String(config.LogKeyRequestID, r.Header.Get(config.HeaderRequestID)),
			)
		})
	}
}

// cors allows the browser frontend to call the API from another origin.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+config.HeaderRequestID)
		w.Header().Set("Access-Control-Max-Age", config.CORSMaxAge)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recovery turns a panic into a 500 envelope.
func recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error(config.MsgPanic,
						slog.Any(config.LogKeyError, err),
						slog.String(config.LogKeyPath, r.URL.Path),
						slog.String(config.LogKeyRequestID, r.Header.Get(config.HeaderRequestID)),
					)
					writeError(w, http.StatusInternalServerError, config.HTTPMsgInternalErr, config.CodeInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
