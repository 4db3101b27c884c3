// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from the concrete Stripe, Supabase, CRM and workflow adapters.
package port

import (
	"context"

	"github.com/fieldcall/fieldcall-backend/internal/domain"
)

// PaymentGateway creates and reads hosted-checkout sessions. Session reads
// are idempotent; session creation is not and must never be auto-retried.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, plan domain.Plan, snapshot domain.SignupSnapshot) (*domain.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error)
}

// IdentityProvider manages authentication principals (Supabase GoTrue).
type IdentityProvider interface {
	// SignUp creates an identity and establishes a session in one call.
	// A duplicate email yields *domain.ErrConflict.
	SignUp(ctx context.Context, email, password string) (*domain.Identity, *domain.SessionTokens, error)

	// AdminCreateUser creates a pre-confirmed identity via the privileged
	// admin API, bypassing email confirmation.
	AdminCreateUser(ctx context.Context, email, password string) (*domain.Identity, error)

	// AdminFindUserByEmail returns the identity for an email, or nil when
	// none exists.
	AdminFindUserByEmail(ctx context.Context, email string) (*domain.Identity, error)
}

// ProfileStore persists user profiles, one row per identity.
type ProfileStore interface {
	GetProfileByID(ctx context.Context, userID string) (*domain.UserProfile, error)
	GetProfileByEmail(ctx context.Context, email string) (*domain.UserProfile, error)
	CreateProfile(ctx context.Context, columns map[string]any) (*domain.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, updates map[string]any) (*domain.UserProfile, error)
	UpdateProfileByEmail(ctx context.Context, email string, updates map[string]any) (*domain.UserProfile, error)
	ListProfiles(ctx context.Context, page, pageSize int) ([]domain.UserProfile, error)
}

// CRMClient talks to the external CRM (lead mirror + agent-number source).
type CRMClient interface {
	UpsertLead(ctx context.Context, lead *domain.CRMLead) error
	FindContactByEmail(ctx context.Context, email string) (*domain.CRMContact, error)
}

// NumberWorkflow triggers the asynchronous number-provisioning workflow.
type NumberWorkflow interface {
	Trigger(ctx context.Context, req domain.NumberPurchaseRequest) (*domain.WorkflowAck, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
