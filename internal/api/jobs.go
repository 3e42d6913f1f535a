package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/biomedcorpora/bigbio/core/corpus"
	"github.com/biomedcorpora/bigbio/internal/logging"
	"github.com/biomedcorpora/bigbio/internal/validation"
)

// JobStatus represents the current state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// ValidateRequest is the request body for a validation job.
type ValidateRequest struct {
	// Config is the config name to run, e.g. "bc5cdr_bigbio_kb".
	Config string `json:"config"`
	// Path is the raw corpus path, relative to the server's data dir.
	Path string `json:"path"`
	// Format forces a handler instead of content detection.
	Format string `json:"format,omitempty"`
	// Fields maps raw field names to unified names.
	Fields map[string]string `json:"fields,omitempty"`
}

// Job represents an asynchronous validation job.
type Job struct {
	ID          string             `json:"id"`
	Status      JobStatus          `json:"status"`
	Progress    int                `json:"progress"` // 0-100
	Result      *corpus.Report     `json:"result,omitempty"`
	Error       string             `json:"error,omitempty"`
	CreatedAt   string             `json:"created_at"`
	UpdatedAt   string             `json:"updated_at"`
	CompletedAt string             `json:"completed_at,omitempty"`
	Request     ValidateRequest    `json:"request"`
	ctx         context.Context    `json:"-"`
	cancel      context.CancelFunc `json:"-"`
}

// JobStore manages validation jobs in memory.
type JobStore struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

// NewJobStore creates a new job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
	}
}

var globalJobStore = NewJobStore()

// snapshot returns a copy of the job safe to hand outside the store.
// The Result pointer is shared, but it is assigned exactly once when
// the job completes and never mutated afterwards. Callers must hold
// at least a read lock on the store.
func (j *Job) snapshot() *Job {
	cp := *j
	cp.ctx = nil
	cp.cancel = nil
	return &cp
}

// Create creates a new job and returns it. The returned job is the
// live instance the runner mutates; handlers that serialize a job
// must fetch a snapshot via Get instead.
func (s *JobStore) Create(req ValidateRequest) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now().UTC().Format(time.RFC3339)

	job := &Job{
		ID:        uuid.New().String(),
		Status:    JobStatusPending,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
		Request:   req,
		ctx:       ctx,
		cancel:    cancel,
	}

	s.jobs[job.ID] = job
	return job
}

// Get retrieves a snapshot of a job by ID.
func (s *JobStore) Get(id string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, false
	}
	return job.snapshot(), true
}

// Update updates a job's status and progress.
func (s *JobStore) Update(id string, status JobStatus, progress int, result *corpus.Report, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	job.Status = status
	job.Progress = progress
	job.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	if result != nil {
		job.Result = result
	}
	if errMsg != "" {
		job.Error = errMsg
	}
	if status == JobStatusCompleted || status == JobStatusFailed || status == JobStatusCancelled {
		job.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	}

	return nil
}

// Delete removes a job from the store, cancelling it if still active.
func (s *JobStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	if job.Status == JobStatusRunning || job.Status == JobStatusPending {
		if job.cancel != nil {
			job.cancel()
		}
	}

	delete(s.jobs, id)
	return nil
}

// List returns snapshots of all jobs.
func (s *JobStore) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.snapshot())
	}
	return jobs
}

// Cancel cancels a pending or running job.
func (s *JobStore) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	if job.Status != JobStatusPending && job.Status != JobStatusRunning {
		return fmt.Errorf("job cannot be cancelled (status: %s)", job.Status)
	}

	if job.cancel != nil {
		job.cancel()
	}

	job.Status = JobStatusCancelled
	job.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	job.CompletedAt = job.UpdatedAt

	return nil
}

// resolveDataPath resolves a request path under the server's data dir.
func resolveDataPath(reqPath string) (string, error) {
	if ServerConfig.DataDir == "" {
		return reqPath, nil
	}
	clean, err := validation.SanitizePath(ServerConfig.DataDir, reqPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(ServerConfig.DataDir, clean), nil
}

// runJob executes a validation job in a goroutine.
func runJob(job *Job) {
	go func() {
		path, err := resolveDataPath(job.Request.Path)
		if err != nil {
			globalJobStore.Update(job.ID, JobStatusFailed, 0, nil, err.Error())
			BroadcastError("validate", err.Error())
			return
		}

		globalJobStore.Update(job.ID, JobStatusRunning, 0, nil, "")
		BroadcastProgress("validate", "loading", job.Request.Config, 0)

		rep, _, err := corpus.Run(job.Request.Config, path, corpus.Options{
			Context: job.ctx,
			Format:  job.Request.Format,
			Fields:  job.Request.Fields,
			Progress: func(done, total int) {
				pct := 0
				if total > 0 {
					pct = done * 100 / total
				}
				globalJobStore.Update(job.ID, JobStatusRunning, pct, nil, "")
				BroadcastProgress("validate", "validating",
					fmt.Sprintf("%d/%d records", done, total), pct)
			},
		})

		select {
		case <-job.ctx.Done():
			globalJobStore.Update(job.ID, JobStatusCancelled, job.Progress, nil, "Job cancelled by user")
			return
		default:
		}

		if err != nil {
			globalJobStore.Update(job.ID, JobStatusFailed, 100, nil, err.Error())
			BroadcastError("validate", err.Error())
			return
		}

		if ServerConfig.ReportsDir != "" {
			out := filepath.Join(ServerConfig.ReportsDir, job.ID+".json")
			if werr := corpus.WriteReport(rep, out); werr != nil {
				logging.Error("failed to write job report", "job_id", job.ID, "error", werr)
			}
		}

		globalJobStore.Update(job.ID, JobStatusCompleted, 100, rep, "")
		BroadcastComplete("validate", rep.Status, map[string]any{
			"job_id":  job.ID,
			"config":  rep.Config,
			"records": rep.Records,
			"failed":  rep.Failed,
		})
	}()
}

// handleJobs handles POST /jobs (create) and GET /jobs (list).
func handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respond(w, http.StatusOK, globalJobStore.List())

	case http.MethodPost:
		var req ValidateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
			return
		}
		if req.Config == "" || req.Path == "" {
			respondError(w, http.StatusBadRequest, "MISSING_PARAMS", "config and path are required")
			return
		}

		job := globalJobStore.Create(req)
		runJob(job)
		snap, _ := globalJobStore.Get(job.ID)
		respond(w, http.StatusCreated, snap)

	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and POST are allowed")
	}
}

// handleJobByID handles GET /jobs/:id and DELETE /jobs/:id.
func handleJobByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/jobs/")
	if id == "" || strings.Contains(id, "/") {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Job not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		job, ok := globalJobStore.Get(id)
		if !ok {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Job not found")
			return
		}
		respond(w, http.StatusOK, job)

	case http.MethodDelete:
		if err := globalJobStore.Cancel(id); err == nil {
			job, _ := globalJobStore.Get(id)
			respond(w, http.StatusOK, job)
			return
		}
		if err := globalJobStore.Delete(id); err != nil {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Job not found")
			return
		}
		respond(w, http.StatusOK, map[string]string{"deleted": id})

	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and DELETE are allowed")
	}
}
