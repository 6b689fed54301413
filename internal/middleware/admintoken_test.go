package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAdminToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		configured string
		header     string
		value      string
		want       int
	}{
		{"not configured", "", HeaderAdminToken, "anything", http.StatusServiceUnavailable},
		{"missing", "s3cret", "", "", http.StatusUnauthorized},
		{"wrong", "s3cret", HeaderAdminToken, "nope", http.StatusUnauthorized},
		{"header", "s3cret", HeaderAdminToken, "s3cret", http.StatusOK},
		{"bearer", "s3cret", "Authorization", "Bearer s3cret", http.StatusOK},
		{"bearer wrong", "s3cret", "Authorization", "Bearer nope", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhooks/test", http.NoBody)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			AdminToken(func() string { return tt.configured })(ok).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestAdminTokenNilSource(t *testing.T) {
	rec := httptest.NewRecorder()
	AdminToken(nil)(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", http.NoBody))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
