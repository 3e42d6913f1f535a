// Package api provides the bigbio REST API server. It exposes the
// dataset registry, runs validation jobs asynchronously, and streams
// job progress over WebSocket.
package api

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/biomedcorpora/bigbio/internal/logging"
)

const version = "1.0.0"

// Start starts the API server with the given configuration. It blocks
// until the listener fails.
func Start(cfg Config) error {
	ServerConfig = cfg

	if cfg.ReportsDir != "" {
		if err := os.MkdirAll(cfg.ReportsDir, 0o755); err != nil {
			return fmt.Errorf("failed to create reports directory: %w", err)
		}
	}

	GlobalHub = NewHub()
	go GlobalHub.Run()

	mux := setupRoutes()

	logging.ServerStartup("rest_api", "http", cfg.Port,
		"websocket_protocol", "ws",
		"data_dir", cfg.DataDir)

	handler := corsMiddleware(cfg.AllowedOrigins, requestLogger(mux))
	addr := fmt.Sprintf(":%d", cfg.Port)
	return http.ListenAndServe(addr, handler)
}

func setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", handleRoot)
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/datasets", handleDatasets)
	mux.HandleFunc("/datasets/", handleDatasetByName)
	mux.HandleFunc("/configs", handleConfigs)
	mux.HandleFunc("/formats", handleFormats)
	mux.HandleFunc("/ws", handleWebSocket)
	mux.HandleFunc("/jobs", handleJobs)
	mux.HandleFunc("/jobs/", handleJobByID)

	return mux
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The websocket upgrade hijacks the connection; the recorder
		// would break it.
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		logging.HTTPRequest(r.Method, r.URL.Path, r.RemoteAddr, rec.status, time.Since(start))
	})
}

func corsMiddleware(allowedOrigins []string, next http.Handler) http.Handler {
	allow := func(origin string) bool {
		if len(allowedOrigins) == 0 {
			return true
		}
		for _, a := range allowedOrigins {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && allow(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
