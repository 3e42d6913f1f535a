package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/biomedcorpora/bigbio/internal/formats/brat"
)

const (
	testDocText = "Naloxone reverses clonidine."
	testDocAnn  = "T1\tChemical 0 8\tNaloxone\n" +
		"T2\tChemical 18 27\tclonidine\n"
)

func writeTestCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "PMID-100.txt"), []byte(testDocText), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "PMID-100.ann"), []byte(testDocAnn), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestJobStoreLifecycle(t *testing.T) {
	store := NewJobStore()

	job := store.Create(ValidateRequest{Config: "bc5cdr_bigbio_kb", Path: "raw"})
	if job.ID == "" || job.Status != JobStatusPending {
		t.Fatalf("job = %+v", job)
	}

	got, ok := store.Get(job.ID)
	if !ok || got.ID != job.ID {
		t.Fatalf("get = %+v, %v", got, ok)
	}

	if err := store.Update(job.ID, JobStatusRunning, 50, nil, ""); err != nil {
		t.Fatal(err)
	}
	got, _ = store.Get(job.ID)
	if got.Status != JobStatusRunning || got.Progress != 50 {
		t.Errorf("after update = %+v", got)
	}

	if err := store.Cancel(job.ID); err != nil {
		t.Fatal(err)
	}
	got, _ = store.Get(job.ID)
	if got.Status != JobStatusCancelled || got.CompletedAt == "" {
		t.Errorf("after cancel = %+v", got)
	}
	// A finished job cannot be cancelled again.
	if err := store.Cancel(job.ID); err == nil {
		t.Error("expected error")
	}

	if err := store.Delete(job.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Get(job.ID); ok {
		t.Error("job still present after delete")
	}
}

func TestJobStore_SnapshotsAreStable(t *testing.T) {
	store := NewJobStore()
	job := store.Create(ValidateRequest{Config: "bc5cdr_bigbio_kb", Path: "raw"})

	// Serializing a fetched job must be safe while the runner keeps
	// updating the live instance in the store.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i <= 100; i++ {
			store.Update(job.ID, JobStatusRunning, i, nil, "")
		}
	}()
	for i := 0; i < 100; i++ {
		got, ok := store.Get(job.ID)
		if !ok {
			t.Fatal("job disappeared")
		}
		if _, err := json.Marshal(got); err != nil {
			t.Fatal(err)
		}
		for _, j := range store.List() {
			if _, err := json.Marshal(j); err != nil {
				t.Fatal(err)
			}
		}
	}
	<-done

	// A snapshot is a copy: later updates must not show through it.
	snap, _ := store.Get(job.ID)
	store.Update(job.ID, JobStatusCompleted, 100, nil, "")
	if snap.Status == JobStatusCompleted {
		t.Error("snapshot reflects a later update")
	}
}

func TestJobStore_UnknownID(t *testing.T) {
	store := NewJobStore()
	if err := store.Update("nope", JobStatusRunning, 0, nil, ""); err == nil {
		t.Error("update: expected error")
	}
	if err := store.Cancel("nope"); err == nil {
		t.Error("cancel: expected error")
	}
	if err := store.Delete("nope"); err == nil {
		t.Error("delete: expected error")
	}
}

func postJob(t *testing.T, body any) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader(data))
	w := httptest.NewRecorder()
	setupRoutes().ServeHTTP(w, req)

	var resp APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return w, resp
}

func waitForJob(t *testing.T, id string) *Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := globalJobStore.Get(id)
		if !ok {
			t.Fatal("job disappeared")
		}
		switch job.Status {
		case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not finish")
	return nil
}

func TestHandleJobs_Validate(t *testing.T) {
	dir := writeTestCorpus(t)
	ServerConfig = Config{DataDir: "", ReportsDir: t.TempDir()}
	t.Cleanup(func() { ServerConfig = Config{} })

	w, resp := postJob(t, ValidateRequest{
		Config: "bc5cdr_bigbio_kb",
		Path:   dir,
		Format: "brat",
	})
	if w.Code != http.StatusCreated || !resp.Success {
		t.Fatalf("code=%d resp=%+v", w.Code, resp)
	}

	raw, _ := json.Marshal(resp.Data)
	var created Job
	if err := json.Unmarshal(raw, &created); err != nil {
		t.Fatal(err)
	}

	job := waitForJob(t, created.ID)
	if job.Status != JobStatusCompleted {
		t.Fatalf("job = %+v", job)
	}
	if job.Result == nil || !job.Result.Passed() || job.Result.Records != 1 {
		t.Errorf("result = %+v", job.Result)
	}

	// Completed jobs write a report file named after the job id.
	if _, err := os.Stat(filepath.Join(ServerConfig.ReportsDir, job.ID+".json")); err != nil {
		t.Errorf("report: %v", err)
	}
}

func TestHandleJobs_MissingParams(t *testing.T) {
	w, resp := postJob(t, ValidateRequest{Config: "bc5cdr_bigbio_kb"})
	if w.Code != http.StatusBadRequest || resp.Error == nil || resp.Error.Code != "MISSING_PARAMS" {
		t.Errorf("code=%d resp=%+v", w.Code, resp)
	}
}

func TestHandleJobs_RejectsTraversal(t *testing.T) {
	ServerConfig = Config{DataDir: t.TempDir()}
	t.Cleanup(func() { ServerConfig = Config{} })

	w, resp := postJob(t, ValidateRequest{
		Config: "bc5cdr_bigbio_kb",
		Path:   "../outside",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("code = %d", w.Code)
	}
	raw, _ := json.Marshal(resp.Data)
	var created Job
	if err := json.Unmarshal(raw, &created); err != nil {
		t.Fatal(err)
	}

	job := waitForJob(t, created.ID)
	if job.Status != JobStatusFailed {
		t.Errorf("job = %+v", job)
	}
}

func TestHandleJobByID(t *testing.T) {
	job := globalJobStore.Create(ValidateRequest{Config: "c", Path: "p"})
	globalJobStore.Update(job.ID, JobStatusCompleted, 100, nil, "")

	req := httptest.NewRequest(http.MethodGet, "/jobs/"+job.ID, nil)
	w := httptest.NewRecorder()
	setupRoutes().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("get code = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/jobs/"+job.ID, nil)
	w = httptest.NewRecorder()
	setupRoutes().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("delete code = %d", w.Code)
	}
	if _, ok := globalJobStore.Get(job.ID); ok {
		t.Error("job still present")
	}

	req = httptest.NewRequest(http.MethodGet, "/jobs/unknown", nil)
	w = httptest.NewRecorder()
	setupRoutes().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown code = %d", w.Code)
	}
}
