package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResponseWriterRecordsStatusAndBytes(t *testing.T) {
	inner := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: inner, status: http.StatusOK}

	rw.WriteHeader(http.StatusAccepted)
	_, _ = rw.Write([]byte("hello"))

	if rw.status != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rw.status)
	}
	if rw.written != 5 {
		t.Fatalf("expected 5 bytes, got %d", rw.written)
	}
	if http.NewResponseController(rw) == nil {
		t.Fatal("expected a response controller")
	}
	if rw.Unwrap() != inner {
		t.Fatal("Unwrap must return the inner writer")
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s: expected %q, got %q", header, want, got)
		}
	}
}

func TestLoggerWritesAccessRecord(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	req := httptest.NewRequest(http.MethodPost, "/webhook/github/abc", http.NoBody).WithContext(context.Background())
	h.ServeHTTP(httptest.NewRecorder(), req)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log record: %v (%s)", err, buf.String())
	}
	if rec["msg"] != "http request" {
		t.Errorf("unexpected msg %v", rec["msg"])
	}
	if rec["status"] != float64(http.StatusNotFound) {
		t.Errorf("expected status 404, got %v", rec["status"])
	}
	if rec["path"] != "/webhook/github/abc" {
		t.Errorf("unexpected path %v", rec["path"])
	}
}
