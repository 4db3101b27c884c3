package supabase_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fieldcall/fieldcall-backend/internal/domain"
	"github.com/fieldcall/fieldcall-backend/internal/infra/resilience"
	"github.com/fieldcall/fieldcall-backend/internal/infra/supabase"

	"go.uber.org/zap"
)

func newClient(baseURL string) *supabase.Client {
	return supabase.NewClient(
		&http.Client{Timeout: 2 * time.Second},
		baseURL,
		"anon-key",
		"service-key",
		resilience.NewCircuitBreaker("supabase-test"),
		resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond},
		zap.NewNop(),
	)
}

func TestGetProfileByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/rest/v1/user_profiles") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("apikey") != "anon-key" {
			t.Error("missing apikey header")
		}
		if r.Header.Get("Authorization") != "Bearer service-key" {
			t.Error("missing service role bearer")
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "user-1", "email": "owner@example.com", "has_agent_number": true, "agent_number": "+1555"},
		})
	}))
	defer srv.Close()

	profile, err := newClient(srv.URL).GetProfileByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if profile == nil || profile.AgentNumber != "+1555" || !profile.HasAgentNumber {
		t.Errorf("profile decoded wrong: %+v", profile)
	}
}

func TestGetProfileByID_EmptyResultIsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	profile, err := newClient(srv.URL).GetProfileByID(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("absence is not an error, got %v", err)
	}
	if profile != nil {
		t.Errorf("expected nil, got %+v", profile)
	}
}

func TestCreateProfile_ReturnsRepresentation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Prefer") != "return=representation" {
			t.Error("insert must request the representation back")
		}
		var row map[string]any
		json.NewDecoder(r.Body).Decode(&row)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]map[string]any{row})
	}))
	defer srv.Close()

	profile, err := newClient(srv.URL).CreateProfile(context.Background(), map[string]any{
		"id":    "user-1",
		"email": "owner@example.com",
		"role":  "user",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if profile.ID != "user-1" || profile.Role != "user" {
		t.Errorf("created profile wrong: %+v", profile)
	}
}

func TestUpdateProfile_MissingRowIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).UpdateProfile(context.Background(), "ghost", map[string]any{"role": "admin"})
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSignUp_ReturnsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/signup" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer anon-key" {
			t.Error("public signup must use the anon key")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "tok",
			"refresh_token": "refresh",
			"token_type":    "bearer",
			"expires_in":    3600,
			"user": map[string]any{
				"id":         "user-1",
				"email":      "owner@example.com",
				"created_at": time.Now().Format(time.RFC3339),
			},
		})
	}))
	defer srv.Close()

	identity, tokens, err := newClient(srv.URL).SignUp(context.Background(), "owner@example.com", "hunter22")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if identity.ID != "user-1" {
		t.Errorf("identity wrong: %+v", identity)
	}
	if tokens == nil || tokens.AccessToken != "tok" || tokens.ExpiresIn != 3600 {
		t.Errorf("tokens wrong: %+v", tokens)
	}
}

func TestSignUp_DuplicateIsConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"msg": "User already registered"})
	}))
	defer srv.Close()

	_, _, err := newClient(srv.URL).SignUp(context.Background(), "owner@example.com", "hunter22")
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAdminCreateUser_UsesServiceRole(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/admin/users" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer service-key" {
			t.Error("admin API must use the service role key")
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["email_confirm"] != true {
			t.Error("admin-created identities must be pre-confirmed")
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "user-9", "email": body["email"]})
	}))
	defer srv.Close()

	identity, err := newClient(srv.URL).AdminCreateUser(context.Background(), "ops@example.com", "hunter22")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if identity.ID != "user-9" || identity.Email != "ops@example.com" {
		t.Errorf("identity wrong: %+v", identity)
	}
}

func TestAdminFindUserByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"users": []map[string]any{
				{"id": "user-1", "email": "first@example.com"},
				{"id": "user-2", "email": "Owner@Example.com"},
			},
		})
	}))
	defer srv.Close()

	client := newClient(srv.URL)

	identity, err := client.AdminFindUserByEmail(context.Background(), "owner@example.com")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if identity == nil || identity.ID != "user-2" {
		t.Errorf("email match must be case-insensitive, got %+v", identity)
	}

	missing, err := client.AdminFindUserByEmail(context.Background(), "ghost@example.com")
	if err != nil || missing != nil {
		t.Errorf("expected nil for absent identity, got %+v err=%v", missing, err)
	}
}
