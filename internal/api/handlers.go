package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/biomedcorpora/bigbio/core/dataset"
	"github.com/biomedcorpora/bigbio/core/loaders"
)

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *APIMeta  `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// DatasetInfo describes a registered dataset.
type DatasetInfo struct {
	Name       string   `json:"name"`
	PrettyName string   `json:"pretty_name,omitempty"`
	License    string   `json:"license"`
	Languages  []string `json:"languages"`
	Schemas    []string `json:"schemas"`
	Format     string   `json:"format"`
	Configs    []string `json:"configs"`
}

// FormatInfo describes a registered raw-format handler.
type FormatInfo struct {
	Name string `json:"name"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Datasets int    `json:"datasets"`
	Formats  int    `json:"formats"`
}

var startTime = time.Now()

func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"name":    "bigbio API",
		"version": version,
		"endpoints": []string{
			"GET /health",
			"GET /datasets",
			"GET /datasets/:name",
			"GET /configs",
			"GET /formats",
			"WS /ws",
			"GET /jobs",
			"POST /jobs",
			"GET /jobs/:id",
			"DELETE /jobs/:id",
		},
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	respond(w, http.StatusOK, HealthInfo{
		Status:   "healthy",
		Version:  version,
		Uptime:   time.Since(startTime).String(),
		Datasets: len(dataset.List()),
		Formats:  len(loaders.List()),
	})
}

func datasetInfo(e *dataset.Entry) DatasetInfo {
	info := DatasetInfo{
		Name:       e.Card.Name,
		PrettyName: e.Card.PrettyName,
		License:    e.Card.License,
		Languages:  e.Card.Languages,
		Schemas:    e.Card.Schemas,
		Format:     e.Format,
	}
	for _, cfg := range e.Card.Configs() {
		info.Configs = append(info.Configs, cfg.Name())
	}
	return info
}

func handleDatasets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	entries := dataset.List()
	infos := make([]DatasetInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, datasetInfo(e))
	}
	respondWithTotal(w, http.StatusOK, infos, len(infos))
}

func handleDatasetByName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/datasets/")
	if name == "" || strings.Contains(name, "/") {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Dataset not found")
		return
	}

	entry, err := dataset.Get(name)
	if err != nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Dataset not found")
		return
	}
	respond(w, http.StatusOK, datasetInfo(entry))
}

func handleConfigs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	configs := dataset.Configs()
	names := make([]string, 0, len(configs))
	for _, cfg := range configs {
		names = append(names, cfg.Name())
	}
	respondWithTotal(w, http.StatusOK, names, len(names))
}

func handleFormats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	handlers := loaders.List()
	infos := make([]FormatInfo, 0, len(handlers))
	for _, h := range handlers {
		infos = append(infos, FormatInfo{Name: h.Name()})
	}
	respondWithTotal(w, http.StatusOK, infos, len(infos))
}

func respond(w http.ResponseWriter, status int, data any) {
	response := APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func respondWithTotal(w http.ResponseWriter, status int, data any, total int) {
	response := APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Total:     total,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
