package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fieldcall/fieldcall-backend/internal/domain"
	"github.com/fieldcall/fieldcall-backend/internal/infra/observability"
	"github.com/fieldcall/fieldcall-backend/internal/service"

	"go.uber.org/zap"
)

func newCheckoutService(gateway *mockPaymentGateway) *service.CheckoutService {
	return service.NewCheckoutService(gateway, observability.NewMetrics(), zap.NewNop())
}

func TestCreateSession_Success(t *testing.T) {
	gateway := &mockPaymentGateway{
		session: &domain.CheckoutSession{ID: "cs_123", URL: "https://checkout.example/cs_123"},
	}
	svc := newCheckoutService(gateway)

	result, err := svc.CreateSession(context.Background(), &domain.CheckoutRequest{
		FormData: domain.SignupSnapshot{
			"email":    "owner@example.com",
			"password": "hunter22",
			"company":  "Reyes Plumbing",
		},
		SelectedPlan: "starter",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.SessionID != "cs_123" || result.URL != "https://checkout.example/cs_123" {
		t.Errorf("unexpected result %+v", result)
	}
	if gateway.createdPlan.AmountCents != 9900 {
		t.Errorf("starter plan should price at 9900, got %d", gateway.createdPlan.AmountCents)
	}
	if gateway.createdSnap["company"] != "Reyes Plumbing" {
		t.Error("snapshot must pass through to the gateway unchanged")
	}
}

func TestCreateSession_Validation(t *testing.T) {
	svc := newCheckoutService(&mockPaymentGateway{})

	cases := []struct {
		name string
		req  domain.CheckoutRequest
	}{
		{"missing form", domain.CheckoutRequest{SelectedPlan: "starter"}},
		{"missing email", domain.CheckoutRequest{
			FormData:     domain.SignupSnapshot{"password": "x"},
			SelectedPlan: "starter",
		}},
		{"missing password", domain.CheckoutRequest{
			FormData:     domain.SignupSnapshot{"email": "a@b.c"},
			SelectedPlan: "starter",
		}},
		{"unknown plan", domain.CheckoutRequest{
			FormData:     domain.SignupSnapshot{"email": "a@b.c", "password": "x"},
			SelectedPlan: "enterprise",
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateSession(context.Background(), &tc.req)
			var validation *domain.ErrValidation
			if !errors.As(err, &validation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestVerifyPayment_Unpaid(t *testing.T) {
	gateway := &mockPaymentGateway{
		session: &domain.CheckoutSession{
			ID:            "cs_123",
			PaymentStatus: "unpaid",
			CustomerEmail: "owner@example.com",
			Metadata: map[string]string{
				domain.MetadataFormData: `{"email":"owner@example.com"}`,
			},
		},
	}
	svc := newCheckoutService(gateway)

	v, err := svc.VerifyPayment(context.Background(), "cs_123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if v.Paid {
		t.Error("unpaid session must report paid=false")
	}
	if v.FormData != nil {
		t.Error("unpaid session must never reveal the snapshot")
	}
	if v.SelectedPlan != nil {
		t.Error("unpaid session must never reveal the plan")
	}
}

func TestVerifyPayment_PaidRoundTrip(t *testing.T) {
	snapshot := domain.SignupSnapshot{
		"email":     "owner@example.com",
		"password":  "hunter22",
		"firstName": "Dana",
	}
	raw, _ := json.Marshal(snapshot)

	gateway := &mockPaymentGateway{
		session: &domain.CheckoutSession{
			ID:            "cs_123",
			PaymentStatus: domain.CheckoutPaymentStatusPaid,
			CustomerEmail: "owner@example.com",
			AmountTotal:   9900,
			Metadata: map[string]string{
				domain.MetadataFormData:     string(raw),
				domain.MetadataSelectedPlan: "starter",
			},
		},
	}
	svc := newCheckoutService(gateway)

	v, err := svc.VerifyPayment(context.Background(), "cs_123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !v.Paid {
		t.Fatal("paid session must report paid=true")
	}
	if v.FormData["firstName"] != "Dana" || v.FormData["password"] != "hunter22" {
		t.Errorf("snapshot did not survive the round trip: %+v", v.FormData)
	}
	if v.SelectedPlan == nil || *v.SelectedPlan != "starter" {
		t.Errorf("selected plan lost: %v", v.SelectedPlan)
	}

	// Verification is a pure read: a second call returns the same answer.
	again, err := svc.VerifyPayment(context.Background(), "cs_123")
	if err != nil || !again.Paid || again.FormData["firstName"] != "Dana" {
		t.Errorf("second verification differs: %+v err=%v", again, err)
	}
	if gateway.getCalls != 2 {
		t.Errorf("expected 2 provider reads, got %d", gateway.getCalls)
	}
}

func TestVerifyPayment_CorruptMetadataIsNotFatal(t *testing.T) {
	gateway := &mockPaymentGateway{
		session: &domain.CheckoutSession{
			ID:            "cs_123",
			PaymentStatus: domain.CheckoutPaymentStatusPaid,
			Metadata: map[string]string{
				domain.MetadataFormData: "{not json",
			},
		},
	}
	svc := newCheckoutService(gateway)

	v, err := svc.VerifyPayment(context.Background(), "cs_123")
	if err != nil {
		t.Fatalf("corrupt metadata must not fail verification, got %v", err)
	}
	if !v.Paid {
		t.Error("payment state must still be reported")
	}
	if v.FormData != nil {
		t.Error("corrupt snapshot must come back empty, not garbage")
	}
}

func TestVerifyPayment_MissingSessionID(t *testing.T) {
	svc := newCheckoutService(&mockPaymentGateway{})

	_, err := svc.VerifyPayment(context.Background(), "")
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVerifyPayment_ProviderError(t *testing.T) {
	gateway := &mockPaymentGateway{
		getErr: &domain.ErrUpstream{Service: "stripe", Err: errors.New("api down")},
	}
	svc := newCheckoutService(gateway)

	_, err := svc.VerifyPayment(context.Background(), "cs_123")
	var upstream *domain.ErrUpstream
	if !errors.As(err, &upstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
