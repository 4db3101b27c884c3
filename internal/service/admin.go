package service

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/fieldcall/fieldcall-backend/internal/domain"
	"github.com/fieldcall/fieldcall-backend/internal/infra/observability"
	"github.com/fieldcall/fieldcall-backend/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var adminTracer = otel.Tracer("service/admin")

// AdminService implements the privileged flows guarded by the shared
// operator secret: out-of-band account provisioning and role promotion.
type AdminService struct {
	identity port.IdentityProvider
	profiles port.ProfileStore
	secret   string
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewAdminService creates the admin service. secret may be either a plain
// shared secret or a bcrypt hash of one; hashes are preferred in production
// so the secret never sits in the environment in clear.
func NewAdminService(identity port.IdentityProvider, profiles port.ProfileStore, secret string, metrics *observability.Metrics, logger *zap.Logger) *AdminService {
	return &AdminService{
		identity: identity,
		profiles: profiles,
		secret:   secret,
		metrics:  metrics,
		logger:   logger,
	}
}

// checkSecret validates the operator secret. Comparison is constant-time in
// both modes.
func (s *AdminService) checkSecret(provided string) error {
	if provided == "" {
		return &domain.ErrUnauthorized{Message: "missing admin secret"}
	}

	if strings.HasPrefix(s.secret, "$2a$") || strings.HasPrefix(s.secret, "$2b$") || strings.HasPrefix(s.secret, "$2y$") {
		if bcrypt.CompareHashAndPassword([]byte(s.secret), []byte(provided)) != nil {
			return &domain.ErrUnauthorized{Message: "invalid admin secret"}
		}
		return nil
	}

	if subtle.ConstantTimeCompare([]byte(s.secret), []byte(provided)) != 1 {
		return &domain.ErrUnauthorized{Message: "invalid admin secret"}
	}
	return nil
}

// CreateAccount provisions an account outside the payment flow: the
// identity is created pre-confirmed through the auth admin API, and both
// steps are find-or-create so the operation is safe to repeat.
func (s *AdminService) CreateAccount(ctx context.Context, secret string, req *domain.AdminAccountRequest) (*domain.ProvisionResult, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.CreateAccount")
	defer span.End()

	if err := s.checkSecret(secret); err != nil {
		return nil, err
	}
	if req.Email == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "email is required"}
	}
	if req.Password == "" {
		return nil, &domain.ErrValidation{Field: "password", Message: "password is required"}
	}

	role := req.Role
	if role == "" {
		role = domain.RoleSuperAdmin
	}
	switch role {
	case domain.RoleUser, domain.RoleAdmin, domain.RoleSuperAdmin:
	default:
		return nil, &domain.ErrValidation{Field: "role", Message: "unknown role"}
	}
	span.SetAttributes(attribute.String("role", role))

	identity, err := s.identity.AdminFindUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		identity, err = s.identity.AdminCreateUser(ctx, req.Email, req.Password)
		if err != nil {
			return nil, err
		}
	}

	profile, err := s.profiles.GetProfileByID(ctx, identity.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if profile == nil {
		columns := req.Profile.ProfileColumns()
		columns["id"] = identity.ID
		columns["email"] = identity.Email
		columns["role"] = role
		columns["payment_status"] = domain.PaymentStatusCompleted
		columns["has_agent_number"] = false
		columns["created_at"] = now
		columns["updated_at"] = now

		profile, err = s.profiles.CreateProfile(ctx, columns)
	} else {
		profile, err = s.profiles.UpdateProfile(ctx, identity.ID, map[string]any{
			"role":       role,
			"updated_at": now,
		})
	}
	if err != nil {
		return nil, err
	}

	s.metrics.IncrProvisioned("privileged")
	s.logger.Info("privileged account provisioned",
		zap.String("user_id", identity.ID),
		zap.String("role", role),
	)

	return &domain.ProvisionResult{User: identity, Profile: profile}, nil
}

// SetSuperAdmin promotes an existing profile to super_admin by email.
// Promotion never creates anything: no profile means not found.
func (s *AdminService) SetSuperAdmin(ctx context.Context, secret, email string) (*domain.UserProfile, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.SetSuperAdmin")
	defer span.End()

	if err := s.checkSecret(secret); err != nil {
		return nil, err
	}
	if email == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "email is required"}
	}

	profile, err := s.profiles.UpdateProfileByEmail(ctx, email, map[string]any{
		"role":       domain.RoleSuperAdmin,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile promoted to super admin",
		zap.String("user_id", profile.ID),
	)

	return profile, nil
}

// ListProfiles returns a page of profiles for admin dashboards. The caller
// must hold an admin or super_admin role.
func (s *AdminService) ListProfiles(ctx context.Context, requesterID string, page, pageSize int) ([]domain.UserProfile, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.ListProfiles")
	defer span.End()

	requester, err := s.profiles.GetProfileByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if requester == nil {
		return nil, &domain.ErrForbidden{Action: "list profiles"}
	}
	switch requester.Role {
	case domain.RoleAdmin, domain.RoleSuperAdmin:
	default:
		return nil, &domain.ErrForbidden{Action: "list profiles"}
	}

	return s.profiles.ListProfiles(ctx, page, pageSize)
}
