package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Strob0t/hookrelay/internal/domain"
	"github.com/Strob0t/hookrelay/internal/domain/account"
	"github.com/Strob0t/hookrelay/internal/domain/destination"
	"github.com/Strob0t/hookrelay/internal/domain/mention"
	"github.com/Strob0t/hookrelay/internal/port/database"
)

// AdminService manages accounts, destinations and mention settings.
type AdminService struct {
	store         database.Store
	validate      *validator.Validate
	allowedPrefix string
}

// NewAdminService creates an admin service. Notification URLs must start
// with allowedPrefix; an empty prefix allows any URL.
func NewAdminService(store database.Store, allowedPrefix string) *AdminService {
	return &AdminService{
		store:         store,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		allowedPrefix: allowedPrefix,
	}
}

// check runs struct validation and wraps failures in domain.ErrValidation.
func (s *AdminService) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, ", "))
}

func (s *AdminService) checkPrefix(url string) error {
	if !destination.HasPrefix(url, s.allowedPrefix) {
		return fmt.Errorf("%w: notification url must start with %s", domain.ErrValidation, s.allowedPrefix)
	}
	return nil
}

// CreateAccount validates and stores a new account.
func (s *AdminService) CreateAccount(ctx context.Context, req account.CreateRequest) (*account.Account, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.check(req); err != nil {
		return nil, err
	}
	a, err := s.store.CreateAccount(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	slog.InfoContext(ctx, "account created", "account_id", a.ID)
	return a, nil
}

// ListAccounts returns every account.
func (s *AdminService) ListAccounts(ctx context.Context) ([]account.Account, error) {
	return s.store.ListAccounts(ctx)
}

// DeleteAccount removes an account and, by cascade, its destinations.
func (s *AdminService) DeleteAccount(ctx context.Context, id string) error {
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("delete account %s: %w", id, err)
	}
	slog.InfoContext(ctx, "account deleted", "account_id", id)
	return nil
}

// CreateDestination registers a repository. When req.Secret is empty a
// secret is generated. The returned destination carries the plaintext
// secret so it can be shown once.
func (s *AdminService) CreateDestination(ctx context.Context, req destination.CreateRequest) (*destination.Destination, error) {
	req.RepoIdentifier = strings.TrimSpace(req.RepoIdentifier)
	if err := s.check(req); err != nil {
		return nil, err
	}
	if err := s.checkPrefix(req.NotificationURL); err != nil {
		return nil, err
	}

	secret := req.Secret
	if secret == "" {
		var err error
		if secret, err = destination.GenerateSecret(); err != nil {
			return nil, err
		}
	}

	d := &destination.Destination{
		OwnerID:         req.OwnerID,
		RepoIdentifier:  req.RepoIdentifier,
		NotificationURL: req.NotificationURL,
		Secret:          secret,
	}
	if err := s.store.CreateDestination(ctx, d); err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}
	slog.InfoContext(ctx, "destination created", "destination", d)
	return d, nil
}

// GetDestination returns a destination by id.
func (s *AdminService) GetDestination(ctx context.Context, id string) (*destination.Destination, error) {
	return s.store.GetDestination(ctx, id)
}

// ListDestinations returns the destinations of ownerID, or all of them when
// ownerID is empty.
func (s *AdminService) ListDestinations(ctx context.Context, ownerID string) ([]destination.Destination, error) {
	return s.store.ListDestinations(ctx, ownerID)
}

// UpdateDestination changes the notification URL and/or the secret.
func (s *AdminService) UpdateDestination(ctx context.Context, id string, req destination.UpdateRequest) error {
	if err := s.check(req); err != nil {
		return err
	}
	if req.NotificationURL == "" && req.Secret == "" {
		return fmt.Errorf("%w: nothing to update", domain.ErrValidation)
	}
	if req.NotificationURL != "" {
		if err := s.checkPrefix(req.NotificationURL); err != nil {
			return err
		}
	}
	if err := s.store.UpdateDestination(ctx, id, req); err != nil {
		return fmt.Errorf("update destination %s: %w", id, err)
	}
	slog.InfoContext(ctx, "destination updated", "destination_id", id, "secret_changed", req.Secret != "")
	return nil
}

// RotateSecret replaces the destination's secret with a generated one and
// returns it. The upstream webhook must be updated with the new value.
func (s *AdminService) RotateSecret(ctx context.Context, id string) (string, error) {
	secret, err := destination.GenerateSecret()
	if err != nil {
		return "", err
	}
	if err := s.store.UpdateDestination(ctx, id, destination.UpdateRequest{Secret: secret}); err != nil {
		return "", fmt.Errorf("rotate secret %s: %w", id, err)
	}
	slog.InfoContext(ctx, "destination secret rotated", "destination_id", id)
	return secret, nil
}

// DeleteDestination removes a destination with its preferences and
// identities.
func (s *AdminService) DeleteDestination(ctx context.Context, id string) error {
	if err := s.store.DeleteDestination(ctx, id); err != nil {
		return fmt.Errorf("delete destination %s: %w", id, err)
	}
	slog.InfoContext(ctx, "destination deleted", "destination_id", id)
	return nil
}

// Preferences returns the effective mention preferences of a destination.
func (s *AdminService) Preferences(ctx context.Context, destinationID string) (mention.Preferences, error) {
	if _, err := s.store.GetDestination(ctx, destinationID); err != nil {
		return nil, err
	}
	return s.store.GetMentionPreferences(ctx, destinationID)
}

// SetPreference enables or disables mentions for one event key.
func (s *AdminService) SetPreference(ctx context.Context, destinationID, key string, enabled bool) error {
	k, err := mention.ParseEventKey(key)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.store.SetMentionPreference(ctx, destinationID, k, enabled); err != nil {
		return fmt.Errorf("set mention preference: %w", err)
	}
	slog.InfoContext(ctx, "mention preference set", "destination_id", destinationID, "event_key", k, "enabled", enabled)
	return nil
}

// AddIdentity maps a source username to a chat handle.
func (s *AdminService) AddIdentity(ctx context.Context, req mention.IdentityRequest) (*mention.Identity, error) {
	req.SourceUsername = strings.TrimSpace(req.SourceUsername)
	req.TargetHandle = strings.TrimSpace(req.TargetHandle)
	if err := s.check(req); err != nil {
		return nil, err
	}
	id, err := s.store.AddMentionIdentity(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("add mention identity: %w", err)
	}
	slog.InfoContext(ctx, "mention identity added", "destination_id", req.DestinationID, "username", req.SourceUsername)
	return id, nil
}

// ListIdentities returns the username mappings of a destination.
func (s *AdminService) ListIdentities(ctx context.Context, destinationID string) ([]mention.Identity, error) {
	return s.store.ListMentionIdentities(ctx, destinationID)
}

// RemoveIdentity deletes a username mapping.
func (s *AdminService) RemoveIdentity(ctx context.Context, destinationID, username string) error {
	if err := s.store.DeleteMentionIdentity(ctx, destinationID, username); err != nil {
		return fmt.Errorf("delete mention identity: %w", err)
	}
	return nil
}

// Ping checks the store connection.
func (s *AdminService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
