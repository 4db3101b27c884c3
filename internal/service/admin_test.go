package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fieldcall/fieldcall-backend/internal/domain"
	"github.com/fieldcall/fieldcall-backend/internal/infra/observability"
	"github.com/fieldcall/fieldcall-backend/internal/service"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const adminSecret = "operator-secret"

func newAdminFixture(identity *mockIdentityProvider, profiles *mockProfileStore, secret string) *service.AdminService {
	return service.NewAdminService(identity, profiles, secret, observability.NewMetrics(), zap.NewNop())
}

func TestAdminCreateAccount_WrongSecret(t *testing.T) {
	identity := &mockIdentityProvider{}
	svc := newAdminFixture(identity, newMockProfileStore(), adminSecret)

	for _, secret := range []string{"", "wrong"} {
		_, err := svc.CreateAccount(context.Background(), secret, &domain.AdminAccountRequest{
			Email:    "ops@example.com",
			Password: "hunter22",
		})
		var unauthorized *domain.ErrUnauthorized
		if !errors.As(err, &unauthorized) {
			t.Errorf("secret %q: expected unauthorized, got %v", secret, err)
		}
	}
	if identity.adminCreateCalls != 0 {
		t.Error("a bad secret must not reach the identity provider")
	}
}

func TestAdminCreateAccount_BcryptSecret(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte(adminSecret), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	identity := &mockIdentityProvider{
		adminCreated: &domain.Identity{ID: "user-9", Email: "ops@example.com"},
	}
	svc := newAdminFixture(identity, newMockProfileStore(), string(hash))

	if _, err := svc.CreateAccount(context.Background(), adminSecret, &domain.AdminAccountRequest{
		Email:    "ops@example.com",
		Password: "hunter22",
	}); err != nil {
		t.Fatalf("hashed secret should verify, got %v", err)
	}

	_, err = svc.CreateAccount(context.Background(), "wrong", &domain.AdminAccountRequest{
		Email:    "ops@example.com",
		Password: "hunter22",
	})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestAdminCreateAccount_CreatesIdentityAndProfile(t *testing.T) {
	identity := &mockIdentityProvider{
		adminCreated: &domain.Identity{ID: "user-9", Email: "ops@example.com"},
	}
	profiles := newMockProfileStore()
	svc := newAdminFixture(identity, profiles, adminSecret)

	result, err := svc.CreateAccount(context.Background(), adminSecret, &domain.AdminAccountRequest{
		Email:    "ops@example.com",
		Password: "hunter22",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if identity.adminCreateCalls != 1 {
		t.Errorf("expected one admin create, got %d", identity.adminCreateCalls)
	}
	if result.Profile.Role != domain.RoleSuperAdmin {
		t.Errorf("default role must be super_admin, got %q", result.Profile.Role)
	}
	if result.Session != nil {
		t.Error("privileged provisioning never mints a session")
	}
}

func TestAdminCreateAccount_ReusesExistingIdentity(t *testing.T) {
	identity := &mockIdentityProvider{
		adminFound: &domain.Identity{ID: "user-9", Email: "ops@example.com"},
	}
	profiles := newMockProfileStore()
	profiles.byID["user-9"] = &domain.UserProfile{ID: "user-9", Email: "ops@example.com", Role: domain.RoleUser}
	svc := newAdminFixture(identity, profiles, adminSecret)

	result, err := svc.CreateAccount(context.Background(), adminSecret, &domain.AdminAccountRequest{
		Email:    "ops@example.com",
		Password: "hunter22",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if identity.adminCreateCalls != 0 {
		t.Error("an existing identity must be reused, not recreated")
	}
	if result.Profile.Role != domain.RoleSuperAdmin {
		t.Errorf("existing profile must be promoted, got %q", result.Profile.Role)
	}
}

func TestAdminCreateAccount_UnknownRole(t *testing.T) {
	svc := newAdminFixture(&mockIdentityProvider{}, newMockProfileStore(), adminSecret)

	_, err := svc.CreateAccount(context.Background(), adminSecret, &domain.AdminAccountRequest{
		Email:    "ops@example.com",
		Password: "hunter22",
		Role:     "root",
	})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetSuperAdmin_PromotesExistingProfile(t *testing.T) {
	profiles := newMockProfileStore()
	profiles.byID["user-1"] = &domain.UserProfile{ID: "user-1", Email: "owner@example.com", Role: domain.RoleUser}
	profiles.byEmail["owner@example.com"] = profiles.byID["user-1"]
	svc := newAdminFixture(&mockIdentityProvider{}, profiles, adminSecret)

	profile, err := svc.SetSuperAdmin(context.Background(), adminSecret, "owner@example.com")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if profile.Role != domain.RoleSuperAdmin {
		t.Errorf("expected super_admin, got %q", profile.Role)
	}
}

func TestSetSuperAdmin_NoProfileIsNotFound(t *testing.T) {
	svc := newAdminFixture(&mockIdentityProvider{}, newMockProfileStore(), adminSecret)

	_, err := svc.SetSuperAdmin(context.Background(), adminSecret, "ghost@example.com")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("promotion must not create anything; expected not found, got %v", err)
	}
}

func TestListProfiles_RoleGate(t *testing.T) {
	profiles := newMockProfileStore()
	profiles.byID["admin-1"] = &domain.UserProfile{ID: "admin-1", Role: domain.RoleAdmin}
	profiles.byID["user-1"] = &domain.UserProfile{ID: "user-1", Role: domain.RoleUser}
	svc := newAdminFixture(&mockIdentityProvider{}, profiles, adminSecret)

	if _, err := svc.ListProfiles(context.Background(), "admin-1", 1, 50); err != nil {
		t.Fatalf("admin should list profiles, got %v", err)
	}

	for _, requester := range []string{"user-1", "ghost"} {
		_, err := svc.ListProfiles(context.Background(), requester, 1, 50)
		var forbidden *domain.ErrForbidden
		if !errors.As(err, &forbidden) {
			t.Errorf("requester %q: expected forbidden, got %v", requester, err)
		}
	}
}
