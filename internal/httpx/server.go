package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

// DefaultRequestTimeout bounds handlers that never wait on the broker.
const DefaultRequestTimeout = 15 * time.Second

// HealthFunc reports readiness plus extra fields for the health body.
type HealthFunc func() (ok bool, detail map[string]string)

// NewRouter builds the base router shared by both services. metrics and health
// may be nil. Request timeouts are set per route group by the handlers.
func NewRouter(log *zap.Logger, metrics http.Handler, health HealthFunc) *chi.Mux {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(log), middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if health == nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
			return
		}
		ok, detail := health()
		body := map[string]string{"status": "OK"}
		for k, v := range detail {
			body[k] = v
		}
		code := http.StatusOK
		if !ok {
			code = http.StatusServiceUnavailable
			body["status"] = "UNAVAILABLE"
		}
		writeJSON(w, code, body)
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	return r
}

// NewServer returns a server whose write deadline leaves room for the slowest
// handler; maxHandler <= 0 means DefaultRequestTimeout.
func NewServer(addr string, h http.Handler, maxHandler time.Duration) *http.Server {
	if maxHandler <= 0 {
		maxHandler = DefaultRequestTimeout
	}
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      maxHandler + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"message": msg})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
