package highlevel_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fieldcall/fieldcall-backend/internal/domain"
	"github.com/fieldcall/fieldcall-backend/internal/infra/highlevel"
	"github.com/fieldcall/fieldcall-backend/internal/infra/resilience"

	"go.uber.org/zap"
)

func newClient(baseURL string) *highlevel.Client {
	return highlevel.NewClient(
		&http.Client{Timeout: 2 * time.Second},
		baseURL,
		"crm-token",
		"loc-1",
		"2021-07-28",
		resilience.NewCircuitBreaker("highlevel-test"),
		resilience.NewBulkhead(4),
		resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond},
		zap.NewNop(),
	)
}

func TestFindContactByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer crm-token" {
			t.Errorf("missing bearer token")
		}
		if r.Header.Get("Version") != "2021-07-28" {
			t.Errorf("missing Version header")
		}
		if r.URL.Query().Get("locationId") != "loc-1" {
			t.Errorf("missing locationId, got %q", r.URL.Query().Get("locationId"))
		}

		json.NewEncoder(w).Encode(map[string]any{
			"contacts": []map[string]any{
				{
					"id":    "contact-2",
					"email": "other@example.com",
				},
				{
					"id":    "contact-1",
					"email": "Owner@Example.com",
					"customFields": []map[string]string{
						{"id": "field-number", "value": "+15550001111"},
					},
				},
			},
		})
	}))
	defer srv.Close()

	contact, err := newClient(srv.URL).FindContactByEmail(context.Background(), "owner@example.com")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if contact == nil || contact.ID != "contact-1" {
		t.Fatalf("email match must be case-insensitive, got %+v", contact)
	}

	value, ok := contact.CustomField("field-number")
	if !ok || value != "+15550001111" {
		t.Errorf("custom field lost: %q ok=%v", value, ok)
	}
}

func TestFindContactByEmail_NoMatchIsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"contacts": []any{}})
	}))
	defer srv.Close()

	contact, err := newClient(srv.URL).FindContactByEmail(context.Background(), "ghost@example.com")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if contact != nil {
		t.Errorf("expected nil for absent contact, got %+v", contact)
	}
}

func TestUpsertLead_SetsLocation(t *testing.T) {
	var received domain.CRMLead
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := newClient(srv.URL).UpsertLead(context.Background(), &domain.CRMLead{
		Type:  "lead",
		Email: "owner@example.com",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if received.LocationID != "loc-1" {
		t.Errorf("location id must be stamped on the lead, got %q", received.LocationID)
	}
}

func TestUpsertLead_DuplicateIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"This location does not allow duplicated contacts"}`))
	}))
	defer srv.Close()

	err := newClient(srv.URL).UpsertLead(context.Background(), &domain.CRMLead{Email: "owner@example.com"})
	if err != nil {
		t.Errorf("duplicate contact must count as mirrored, got %v", err)
	}
}
