// Package stripe adapts Stripe hosted checkout to the PaymentGateway port.
// The raw API calls sit behind a two-method interface so the services can be
// tested without network access.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fieldcall/fieldcall-backend/internal/domain"
	"github.com/fieldcall/fieldcall-backend/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("stripe")

// CheckoutAPI is the subset of Stripe checkout operations the gateway needs.
type CheckoutAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type checkoutAPI struct{}

func (checkoutAPI) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.New(params)
}

func (checkoutAPI) Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.Get(id, params)
}

// Gateway implements port.PaymentGateway on top of Stripe Checkout.
type Gateway struct {
	api     CheckoutAPI
	siteURL string
	cb      *gobreaker.CircuitBreaker
	cfg     resilience.Config
	logger  *zap.Logger
}

// NewGateway initializes Stripe with the secret key and returns the gateway.
func NewGateway(apiKey, siteURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) (*Gateway, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, &domain.ErrConfiguration{Name: "STRIPE_SECRET_KEY"}
	}
	if !strings.HasPrefix(apiKey, "sk_") && !strings.HasPrefix(apiKey, "rk_") {
		return nil, fmt.Errorf("stripe secret key must start with sk_ or rk_")
	}
	stripe.Key = apiKey

	return &Gateway{
		api:     checkoutAPI{},
		siteURL: strings.TrimRight(siteURL, "/"),
		cb:      cb,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// NewGatewayWithAPI injects a custom API implementation (tests).
func NewGatewayWithAPI(api CheckoutAPI, siteURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Gateway {
	return &Gateway{
		api:     api,
		siteURL: strings.TrimRight(siteURL, "/"),
		cb:      cb,
		cfg:     cfg,
		logger:  logger,
	}
}

// CreateCheckoutSession creates a hosted-checkout session carrying the whole
// signup snapshot in metadata. Session creation is not idempotent, so it runs
// under the breaker but is never retried; the user re-submits the form.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, plan domain.Plan, snapshot domain.SignupSnapshot) (*domain.CheckoutSession, error) {
	ctx, span := tracer.Start(ctx, "Stripe.CreateCheckoutSession")
	defer span.End()
	span.SetAttributes(attribute.String("plan.id", plan.ID))

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(plan.Name),
						Description: stripe.String(plan.Description),
					},
					UnitAmount: stripe.Int64(plan.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(g.siteURL + "/signup?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:     stripe.String(g.siteURL + "/signup?payment=cancelled"),
		CustomerEmail: stripe.String(snapshot.Email()),
	}
	params.Context = ctx
	params.AddMetadata(domain.MetadataFormData, string(payload))
	params.AddMetadata(domain.MetadataSelectedPlan, plan.ID)

	result, err := g.cb.Execute(func() (any, error) {
		return g.api.New(params)
	})
	if err != nil {
		g.logger.Error("stripe: create checkout session failed",
			zap.String("plan", plan.ID),
			zap.Error(err),
		)
		return nil, upstreamErr(err)
	}

	return toDomainSession(result.(*stripe.CheckoutSession)), nil
}

// GetCheckoutSession retrieves a session by id. Reads are idempotent, so
// they get retry + breaker.
func (g *Gateway) GetCheckoutSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	ctx, span := tracer.Start(ctx, "Stripe.GetCheckoutSession")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	var sess *stripe.CheckoutSession

	_, err := g.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, g.cfg, func() error {
			params := &stripe.CheckoutSessionParams{}
			params.Context = ctx
			s, err := g.api.Get(sessionID, params)
			if err != nil {
				return err
			}
			sess = s
			return nil
		})
	})
	if err != nil {
		g.logger.Error("stripe: retrieve checkout session failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return nil, upstreamErr(err)
	}

	return toDomainSession(sess), nil
}

func toDomainSession(s *stripe.CheckoutSession) *domain.CheckoutSession {
	email := s.CustomerEmail
	if email == "" && s.CustomerDetails != nil {
		email = s.CustomerDetails.Email
	}
	return &domain.CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		CustomerEmail: email,
		AmountTotal:   s.AmountTotal,
		Metadata:      s.Metadata,
	}
}

func upstreamErr(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return &domain.ErrUpstream{
			Service: "stripe",
			Status:  stripeErr.HTTPStatusCode,
			Detail:  stripeErr.Msg,
			Err:     err,
		}
	}
	return &domain.ErrUpstream{Service: "stripe", Err: err}
}
