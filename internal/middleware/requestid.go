// Package middleware provides HTTP middleware for the relay server.
package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/Strob0t/hookrelay/internal/logger"
	"github.com/Strob0t/hookrelay/internal/port/messagequeue"
)

// maxRequestIDLen bounds caller-supplied IDs before they reach logs and
// message headers.
const maxRequestIDLen = 128

// headerDelivery is the upstream's unique ID for one webhook delivery.
const headerDelivery = "X-GitHub-Delivery"

// RequestID is HTTP middleware that takes the request ID from X-Request-ID,
// then from the upstream delivery ID, or generates a new one. The ID is
// stored in the context and set on the response header. Supplied IDs that
// are too long or contain non-printable characters are ignored.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(messagequeue.HeaderRequestID)
		if !validRequestID(id) {
			id = r.Header.Get(headerDelivery)
		}
		if !validRequestID(id) {
			id = generateID()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(messagequeue.HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// generateID returns a 16-byte random hex string (32 chars).
func generateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
