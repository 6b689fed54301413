package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Strob0t/hookrelay/internal/domain"
	"github.com/Strob0t/hookrelay/internal/domain/account"
	"github.com/Strob0t/hookrelay/internal/domain/destination"
	"github.com/Strob0t/hookrelay/internal/domain/mention"
)

const allowedPrefix = "https://discord.com/api/webhooks/"

func newAdmin(t *testing.T) (*AdminService, *account.Account) {
	t.Helper()
	svc := NewAdminService(newFakeStore(), allowedPrefix)
	a, err := svc.CreateAccount(context.Background(), account.CreateRequest{Name: "acme"})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return svc, a
}

func TestAdmin_CreateAccountValidation(t *testing.T) {
	svc := NewAdminService(newFakeStore(), allowedPrefix)
	_, err := svc.CreateAccount(context.Background(), account.CreateRequest{Name: "   "})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAdmin_CreateDestinationGeneratesSecret(t *testing.T) {
	svc, a := newAdmin(t)
	d, err := svc.CreateDestination(context.Background(), destination.CreateRequest{
		OwnerID:         a.ID,
		RepoIdentifier:  "acme/widgets",
		NotificationURL: allowedPrefix + "1/token",
	})
	if err != nil {
		t.Fatalf("CreateDestination: %v", err)
	}
	if len(d.Secret) != 64 {
		t.Errorf("expected 64-char generated secret, got %d chars", len(d.Secret))
	}
	if d.ID == "" {
		t.Error("expected id to be assigned")
	}
}

func TestAdmin_CreateDestinationRejects(t *testing.T) {
	tests := []struct {
		name string
		req  func(owner string) destination.CreateRequest
	}{
		{"repo without owner segment", func(o string) destination.CreateRequest {
			return destination.CreateRequest{OwnerID: o, RepoIdentifier: "widgets", NotificationURL: allowedPrefix + "1/t"}
		}},
		{"foreign url", func(o string) destination.CreateRequest {
			return destination.CreateRequest{OwnerID: o, RepoIdentifier: "acme/widgets", NotificationURL: "https://example.com/hook"}
		}},
		{"short secret", func(o string) destination.CreateRequest {
			return destination.CreateRequest{OwnerID: o, RepoIdentifier: "acme/widgets", NotificationURL: allowedPrefix + "1/t", Secret: "short"}
		}},
		{"bad owner id", func(string) destination.CreateRequest {
			return destination.CreateRequest{OwnerID: "not-a-uuid", RepoIdentifier: "acme/widgets", NotificationURL: allowedPrefix + "1/t"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, a := newAdmin(t)
			_, err := svc.CreateDestination(context.Background(), tt.req(a.ID))
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestAdmin_DuplicateRepoConflicts(t *testing.T) {
	svc, a := newAdmin(t)
	req := destination.CreateRequest{OwnerID: a.ID, RepoIdentifier: "acme/widgets", NotificationURL: allowedPrefix + "1/t"}
	if _, err := svc.CreateDestination(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	_, err := svc.CreateDestination(context.Background(), req)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAdmin_RotateSecret(t *testing.T) {
	svc, a := newAdmin(t)
	d, err := svc.CreateDestination(context.Background(), destination.CreateRequest{
		OwnerID: a.ID, RepoIdentifier: "acme/widgets", NotificationURL: allowedPrefix + "1/t", Secret: "initial-secret",
	})
	if err != nil {
		t.Fatal(err)
	}

	secret, err := svc.RotateSecret(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("RotateSecret: %v", err)
	}
	got, err := svc.GetDestination(context.Background(), d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Secret != secret || secret == "initial-secret" {
		t.Errorf("secret was not rotated")
	}
}

func TestAdmin_UpdateDestinationNothingToUpdate(t *testing.T) {
	svc, _ := newAdmin(t)
	err := svc.UpdateDestination(context.Background(), "x", destination.UpdateRequest{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAdmin_Preferences(t *testing.T) {
	svc, a := newAdmin(t)
	d, err := svc.CreateDestination(context.Background(), destination.CreateRequest{
		OwnerID: a.ID, RepoIdentifier: "acme/widgets", NotificationURL: allowedPrefix + "1/t",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.SetPreference(context.Background(), d.ID, "bogus", true); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown key, got %v", err)
	}
	if err := svc.SetPreference(context.Background(), d.ID, "pr_opened", true); err != nil {
		t.Fatal(err)
	}

	prefs, err := svc.Preferences(context.Background(), d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(prefs) != len(mention.AllEventKeys) {
		t.Errorf("expected all %d keys, got %d", len(mention.AllEventKeys), len(prefs))
	}
	if !prefs[mention.KeyPROpened] || !prefs[mention.KeyReviewApproved] || prefs[mention.KeyPRClosed] {
		t.Errorf("unexpected preferences: %v", prefs)
	}

	if _, err := svc.Preferences(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found for unknown destination, got %v", err)
	}
}

func TestAdmin_Identities(t *testing.T) {
	svc, a := newAdmin(t)
	d, err := svc.CreateDestination(context.Background(), destination.CreateRequest{
		OwnerID: a.ID, RepoIdentifier: "acme/widgets", NotificationURL: allowedPrefix + "1/t",
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.AddIdentity(context.Background(), mention.IdentityRequest{
		DestinationID: d.ID, SourceUsername: "octocat", TargetHandle: "not-a-snowflake",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for non-numeric handle, got %v", err)
	}

	if _, err := svc.AddIdentity(context.Background(), mention.IdentityRequest{
		DestinationID: d.ID, SourceUsername: "octocat", TargetHandle: "1234",
	}); err != nil {
		t.Fatalf("AddIdentity: %v", err)
	}

	ids, err := svc.ListIdentities(context.Background(), d.ID)
	if err != nil || len(ids) != 1 {
		t.Fatalf("expected one identity, got %v (%v)", ids, err)
	}

	if err := svc.RemoveIdentity(context.Background(), d.ID, "octocat"); err != nil {
		t.Fatal(err)
	}
	if err := svc.RemoveIdentity(context.Background(), d.ID, "octocat"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found on second removal, got %v", err)
	}
}
