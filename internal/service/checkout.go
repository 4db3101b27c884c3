package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fieldcall/fieldcall-backend/internal/domain"
	"github.com/fieldcall/fieldcall-backend/internal/infra/observability"
	"github.com/fieldcall/fieldcall-backend/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var checkoutTracer = otel.Tracer("service/checkout")

// CheckoutService owns the payment-first signup flow: it parks the whole
// signup form inside checkout-session metadata, and recovers it after the
// customer returns from the hosted payment page.
type CheckoutService struct {
	payments port.PaymentGateway
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewCheckoutService creates the checkout service.
func NewCheckoutService(payments port.PaymentGateway, metrics *observability.Metrics, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		payments: payments,
		metrics:  metrics,
		logger:   logger,
	}
}

// CreateSession validates the signup form, resolves the plan against the
// server-owned price table, and opens a hosted-checkout session. No account
// exists after this call; everything rides in session metadata.
func (s *CheckoutService) CreateSession(ctx context.Context, req *domain.CheckoutRequest) (*domain.CheckoutSessionResult, error) {
	ctx, span := checkoutTracer.Start(ctx, "CheckoutService.CreateSession")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("checkout_session", time.Since(start)) }()

	if len(req.FormData) == 0 {
		return nil, &domain.ErrValidation{Field: "formData", Message: "formData is required"}
	}
	if req.FormData.Email() == "" {
		return nil, &domain.ErrValidation{Field: "formData.email", Message: "email is required"}
	}
	if req.FormData.Password() == "" {
		return nil, &domain.ErrValidation{Field: "formData.password", Message: "password is required"}
	}

	plan, ok := domain.PlanByID(req.SelectedPlan)
	if !ok {
		return nil, &domain.ErrValidation{Field: "selectedPlan", Message: "unknown plan"}
	}
	span.SetAttributes(attribute.String("plan.id", plan.ID))

	sess, err := s.payments.CreateCheckoutSession(ctx, plan, req.FormData)
	if err != nil {
		s.metrics.IncrExternalError("stripe")
		return nil, err
	}

	s.metrics.IncrCheckoutSession()
	s.logger.Info("checkout session created",
		zap.String("session_id", sess.ID),
		zap.String("plan", plan.ID),
	)

	return &domain.CheckoutSessionResult{SessionID: sess.ID, URL: sess.URL}, nil
}

// VerifyPayment reads a checkout session back from the provider and reports
// whether it settled, returning the recovered signup snapshot when it did.
// Verification only reads provider state, so it is safe to repeat.
func (s *CheckoutService) VerifyPayment(ctx context.Context, sessionID string) (*domain.PaymentVerification, error) {
	v, _, err := s.verifySession(ctx, sessionID)
	return v, err
}

// verifySession is VerifyPayment plus the raw provider status, which the
// provisioning flow needs for its payment-incomplete error.
func (s *CheckoutService) verifySession(ctx context.Context, sessionID string) (*domain.PaymentVerification, string, error) {
	ctx, span := checkoutTracer.Start(ctx, "CheckoutService.VerifyPayment")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("verify_payment", time.Since(start)) }()

	if sessionID == "" {
		return nil, "", &domain.ErrValidation{Field: "session_id", Message: "session_id is required"}
	}
	span.SetAttributes(attribute.String("session.id", sessionID))

	sess, err := s.payments.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		s.metrics.IncrExternalError("stripe")
		return nil, "", err
	}

	verification := &domain.PaymentVerification{
		CustomerEmail: sess.CustomerEmail,
		AmountTotal:   sess.AmountTotal,
	}

	if sess.PaymentStatus != domain.CheckoutPaymentStatusPaid {
		s.metrics.IncrPaymentVerified("unpaid")
		return verification, sess.PaymentStatus, nil
	}

	verification.Paid = true
	s.metrics.IncrPaymentVerified("paid")

	// Metadata recovery is best-effort: a charged customer with corrupt
	// metadata still gets a paid:true answer, just with no snapshot.
	if raw, ok := sess.Metadata[domain.MetadataFormData]; ok && raw != "" {
		var snapshot domain.SignupSnapshot
		if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
			s.logger.Warn("checkout: signup snapshot unrecoverable",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		} else {
			verification.FormData = snapshot
		}
	}
	if plan, ok := sess.Metadata[domain.MetadataSelectedPlan]; ok && plan != "" {
		verification.SelectedPlan = &plan
	}

	return verification, sess.PaymentStatus, nil
}
