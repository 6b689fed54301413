package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Strob0t/hookrelay/internal/domain/destination"
	"github.com/Strob0t/hookrelay/internal/domain/webhook"
	"github.com/Strob0t/hookrelay/internal/port/database"
)

// SignaturePrefix precedes the hex digest in X-Hub-Signature-256.
const SignaturePrefix = "sha256="

// Authentication failures. A missing destination is reported as
// domain.ErrNotFound.
var (
	ErrMissingSignature = errors.New("missing signature")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Verified is an authenticated delivery. It is the only way to reach the
// body as structured data, so a payload cannot be interpreted before its
// signature has been checked.
type Verified struct {
	Destination *destination.Destination
	body        []byte
}

// Parse validates the authenticated body as an event of eventType.
func (v *Verified) Parse(eventType string) (webhook.Variant, error) {
	return webhook.Parse(eventType, v.body)
}

// SignatureVerifier authenticates inbound deliveries against the secret of
// the destination they are addressed to.
type SignatureVerifier struct {
	store database.DestinationStore
}

// NewSignatureVerifier creates a verifier reading destinations from store.
func NewSignatureVerifier(store database.DestinationStore) *SignatureVerifier {
	return &SignatureVerifier{store: store}
}

// Verify looks up the destination before touching body, then checks the
// signature header. It returns domain.ErrNotFound, ErrMissingSignature,
// ErrInvalidSignature, or a wrapped store error.
func (s *SignatureVerifier) Verify(ctx context.Context, destinationID string, body []byte, signature string) (*Verified, error) {
	dest, err := s.store.GetDestination(ctx, destinationID)
	if err != nil {
		return nil, fmt.Errorf("get destination: %w", err)
	}

	if signature == "" {
		return nil, ErrMissingSignature
	}

	if !constantTimeEqual(Sign(dest.Secret, body), signature) {
		return nil, ErrInvalidSignature
	}

	return &Verified{Destination: dest, body: body}, nil
}

// Sign returns the X-Hub-Signature-256 value for body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// constantTimeEqual rejects unequal lengths immediately and otherwise
// inspects every byte, so timing reveals only the length.
func constantTimeEqual(expected, got string) bool {
	if len(expected) != len(got) {
		return false
	}
	var diff byte
	for i := 0; i < len(expected); i++ {
		diff |= expected[i] ^ got[i]
	}
	return diff == 0
}
