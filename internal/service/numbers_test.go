package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fieldcall/fieldcall-backend/internal/domain"
	"github.com/fieldcall/fieldcall-backend/internal/infra/cache"
	"github.com/fieldcall/fieldcall-backend/internal/infra/observability"
	"github.com/fieldcall/fieldcall-backend/internal/service"

	"go.uber.org/zap"
)

func newNumberFixture(workflow *mockNumberWorkflow, profiles *mockProfileStore) *service.NumberService {
	return service.NewNumberService(
		workflow,
		profiles,
		cache.New[string](time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func TestRequestNumber_RelaysVerbatim(t *testing.T) {
	workflow := &mockNumberWorkflow{ack: &domain.WorkflowAck{Success: true, Message: "queued"}}
	svc := newNumberFixture(workflow, newMockProfileStore())

	req := domain.NumberPurchaseRequest{
		"user_id":   "user-1",
		"email":     "owner@example.com",
		"area_code": "512",
	}

	ack, err := svc.RequestNumber(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !ack.Success || ack.Message != "queued" {
		t.Errorf("ack not passed through: %+v", ack)
	}
	if workflow.req["area_code"] != "512" {
		t.Error("request body must reach the workflow verbatim")
	}
}

func TestRequestNumber_Validation(t *testing.T) {
	workflow := &mockNumberWorkflow{}
	svc := newNumberFixture(workflow, newMockProfileStore())

	for _, req := range []domain.NumberPurchaseRequest{
		nil,
		{},
		{"email": "owner@example.com"}, // no user_id
		{"user_id": "user-1"},          // no email
	} {
		_, err := svc.RequestNumber(context.Background(), req)
		var validation *domain.ErrValidation
		if !errors.As(err, &validation) {
			t.Errorf("expected validation error for %+v, got %v", req, err)
		}
	}
	if workflow.req != nil {
		t.Error("invalid requests must never reach the workflow")
	}
}

func TestRequestNumber_UpstreamErrorPassesThrough(t *testing.T) {
	workflow := &mockNumberWorkflow{
		err: &domain.ErrUpstream{Service: "n8n", Status: 500, Err: errors.New("boom")},
	}
	svc := newNumberFixture(workflow, newMockProfileStore())

	_, err := svc.RequestNumber(context.Background(), domain.NumberPurchaseRequest{
		"user_id": "user-1",
		"email":   "owner@example.com",
	})
	var upstream *domain.ErrUpstream
	if !errors.As(err, &upstream) || upstream.Status != 500 {
		t.Fatalf("expected upstream error with status, got %v", err)
	}
}

func TestRequestNumber_InlineNumberSavedOpportunistically(t *testing.T) {
	workflow := &mockNumberWorkflow{
		ack: &domain.WorkflowAck{Success: true, PhoneNumber: "+15550002222"},
	}
	profiles := newMockProfileStore()
	profiles.byID["user-1"] = &domain.UserProfile{ID: "user-1", Email: "owner@example.com"}
	profiles.updateCh = make(chan string, 1)
	svc := newNumberFixture(workflow, profiles)

	_, err := svc.RequestNumber(context.Background(), domain.NumberPurchaseRequest{
		"user_id": "user-1",
		"email":   "owner@example.com",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	select {
	case <-profiles.updateCh:
		if profiles.updates["user-1"]["agent_number"] != "+15550002222" {
			t.Errorf("inline number not saved: %+v", profiles.updates["user-1"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("inline save was never attempted")
	}
}

func TestSaveAgentNumber_StripsArtifactPrefix(t *testing.T) {
	profiles := newMockProfileStore()
	profiles.byID["user-1"] = &domain.UserProfile{ID: "user-1", Email: "owner@example.com"}
	svc := newNumberFixture(&mockNumberWorkflow{}, profiles)

	profile, err := svc.SaveAgentNumber(context.Background(), domain.AgentNumberCallback{
		PhoneNumber: "=+15551234567",
		UserID:      "=user-1",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if profile.AgentNumber != "+15551234567" {
		t.Errorf("prefix not stripped before persisting: %q", profile.AgentNumber)
	}
	if !profile.HasAgentNumber {
		t.Error("has_agent_number must flip on save")
	}
}

func TestSaveAgentNumber_UnknownUserWritesNothing(t *testing.T) {
	profiles := newMockProfileStore()
	svc := newNumberFixture(&mockNumberWorkflow{}, profiles)

	_, err := svc.SaveAgentNumber(context.Background(), domain.AgentNumberCallback{
		PhoneNumber: "+15551234567",
		UserID:      "ghost",
	})
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(profiles.updates) != 0 {
		t.Error("an unknown user must not cause any write")
	}
}

func TestSaveAgentNumber_Validation(t *testing.T) {
	svc := newNumberFixture(&mockNumberWorkflow{}, newMockProfileStore())

	for _, cb := range []domain.AgentNumberCallback{
		{UserID: "user-1"},               // no phone
		{PhoneNumber: "+15551234567"},    // no user
		{PhoneNumber: "=", UserID: "u1"}, // phone collapses to empty
	} {
		_, err := svc.SaveAgentNumber(context.Background(), cb)
		var validation *domain.ErrValidation
		if !errors.As(err, &validation) {
			t.Errorf("expected validation error for %+v, got %v", cb, err)
		}
	}
}
