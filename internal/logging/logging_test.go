package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// captureLogger swaps the package logger for one writing JSON to a
// buffer and restores it when the test finishes.
func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	orig := defaultLogger
	t.Cleanup(func() { defaultLogger = orig })

	var buf bytes.Buffer
	defaultLogger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	return &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("log line %q: %v", lines[len(lines)-1], err)
	}
	return entry
}

func TestInitLogger(t *testing.T) {
	InitLogger(LevelInfo, FormatJSON)
	if GetLogger() == nil {
		t.Fatal("GetLogger returned nil")
	}
	InitLogger(LevelDebug, FormatText)
	if GetLogger() == nil {
		t.Fatal("GetLogger returned nil after reinit")
	}
}

func TestBasicLevels(t *testing.T) {
	buf := captureLogger(t)

	Debug("debug msg", "k", "v")
	Info("info msg")
	Warn("warn msg")
	Error("error msg")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d", len(lines))
	}
	entry := lastEntry(t, buf)
	if entry["msg"] != "error msg" || entry["level"] != "ERROR" {
		t.Errorf("entry = %v", entry)
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")
	if GetRequestID(ctx) != "req-42" {
		t.Errorf("GetRequestID = %q", GetRequestID(ctx))
	}
	if GetRequestID(context.Background()) != "" {
		t.Error("expected empty request id")
	}

	buf := captureLogger(t)
	InfoContext(ctx, "handled")
	entry := lastEntry(t, buf)
	if entry["request_id"] != "req-42" {
		t.Errorf("entry = %v", entry)
	}
}

func TestAnnotationDropped(t *testing.T) {
	buf := captureLogger(t)
	AnnotationDropped("PMID-100", 7, "malformed offset")

	entry := lastEntry(t, buf)
	if entry["msg"] != "annotation_dropped" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["doc_id"] != "PMID-100" || entry["line"] != float64(7) {
		t.Errorf("entry = %v", entry)
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %v", entry["level"])
	}
}

func TestRecordSkipped(t *testing.T) {
	buf := captureLogger(t)
	RecordSkipped("mednli_bigbio_te", "mednli-9", errors.New("missing field"))

	entry := lastEntry(t, buf)
	if entry["config"] != "mednli_bigbio_te" || entry["record_id"] != "mednli-9" {
		t.Errorf("entry = %v", entry)
	}
	if entry["error"] != "missing field" {
		t.Errorf("error = %v", entry["error"])
	}
}

func TestDatasetEvent(t *testing.T) {
	buf := captureLogger(t)
	DatasetEvent("load_started", "bc5cdr", "bc5cdr_bigbio_kb", "documents", 500)

	entry := lastEntry(t, buf)
	if entry["event"] != "load_started" || entry["documents"] != float64(500) {
		t.Errorf("entry = %v", entry)
	}
}

func TestValidationSummary(t *testing.T) {
	buf := captureLogger(t)

	ValidationSummary("bc5cdr_bigbio_kb", 500, 0)
	entry := lastEntry(t, buf)
	if entry["level"] != "INFO" {
		t.Errorf("clean run level = %v", entry["level"])
	}

	ValidationSummary("bc5cdr_bigbio_kb", 500, 3)
	entry = lastEntry(t, buf)
	if entry["level"] != "WARN" || entry["failed"] != float64(3) {
		t.Errorf("failing run entry = %v", entry)
	}
}

func TestHTTPRequest(t *testing.T) {
	buf := captureLogger(t)
	HTTPRequest("GET", "/jobs", "127.0.0.1", 200, 15*time.Millisecond)

	entry := lastEntry(t, buf)
	if entry["msg"] != "http_request" || entry["status_code"] != float64(200) {
		t.Errorf("entry = %v", entry)
	}
}

func TestServerAndWebSocketEvents(t *testing.T) {
	buf := captureLogger(t)

	ServerStartup("api", "http", 8080)
	if entry := lastEntry(t, buf); entry["port"] != float64(8080) {
		t.Errorf("entry = %v", entry)
	}

	WebSocketEvent("client_connected", 2)
	if entry := lastEntry(t, buf); entry["client_count"] != float64(2) {
		t.Errorf("entry = %v", entry)
	}
}
