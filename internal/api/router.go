package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wonny/sectorrotation/internal/api/handlers"
	"github.com/wonny/sectorrotation/pkg/logger"
)

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
// dataHandler may be nil when no market data cache is configured.
func NewRouter(runHandler *handlers.RunHandler, dataHandler *handlers.DataHandler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Backtest runs
	api.HandleFunc("/runs", runHandler.List).Methods("GET")
	api.HandleFunc("/runs/{id}", runHandler.Get).Methods("GET")
	api.HandleFunc("/runs/{id}/schedule", runHandler.GetSchedule).Methods("GET")
	api.HandleFunc("/runs/{id}/equity", runHandler.GetEquity).Methods("GET")
	api.HandleFunc("/runs/{id}/plot.png", runHandler.GetPlot).Methods("GET")

	// Data endpoints
	if dataHandler != nil {
		api.HandleFunc("/data/quality", dataHandler.GetQuality).Methods("GET")
		api.HandleFunc("/data/collect", dataHandler.Collect).Methods("POST")
	}

	// logging is outermost: recovered panics are logged as 500
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "sector-rotation-api",
	})
}

// requestIDHeader carries the id logged with every request
const requestIDHeader = "X-Request-ID"

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware tags each request with an id and logs its outcome.
// 5xx responses are logged at error level, everything else at debug.
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			entry := log.WithFields(map[string]interface{}{
				"request_id": id,
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"duration":   time.Since(start),
			})
			if rec.status >= http.StatusInternalServerError {
				entry.Error("HTTP request failed")
				return
			}
			entry.Debug("HTTP request")
		})
	}
}

// recoveryMiddleware turns a handler panic into a 500
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
