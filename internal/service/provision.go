package service

import (
	"context"
	"errors"
	"time"

	"github.com/fieldcall/fieldcall-backend/internal/config"
	"github.com/fieldcall/fieldcall-backend/internal/domain"
	"github.com/fieldcall/fieldcall-backend/internal/infra/observability"
	"github.com/fieldcall/fieldcall-backend/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var provisionTracer = otel.Tracer("service/provision")

// ProvisionService turns a paid checkout session into a real account:
// auth identity, profile row, and a best-effort CRM mirror.
type ProvisionService struct {
	checkout   *CheckoutService
	identity   port.IdentityProvider
	profiles   port.ProfileStore
	crm        port.CRMClient
	leadFields config.CRMLeadFieldIDs
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewProvisionService creates the provisioning service.
func NewProvisionService(
	checkout *CheckoutService,
	identity port.IdentityProvider,
	profiles port.ProfileStore,
	crm port.CRMClient,
	leadFields config.CRMLeadFieldIDs,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ProvisionService {
	return &ProvisionService{
		checkout:   checkout,
		identity:   identity,
		profiles:   profiles,
		crm:        crm,
		leadFields: leadFields,
		metrics:    metrics,
		logger:     logger,
	}
}

// CompleteSignup verifies the returned session id and provisions the
// account in one server-side step, so provisioning can never run against
// an unpaid session.
func (s *ProvisionService) CompleteSignup(ctx context.Context, sessionID string) (*domain.ProvisionResult, error) {
	ctx, span := provisionTracer.Start(ctx, "ProvisionService.CompleteSignup")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("complete_signup", time.Since(start)) }()

	verification, status, err := s.checkout.verifySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !verification.Paid {
		return nil, &domain.ErrPaymentIncomplete{SessionID: sessionID, Status: status}
	}
	if len(verification.FormData) == 0 {
		// The customer was charged but the signup data is gone. This is
		// an operator incident, not a retryable client error.
		s.logger.Error("provision: paid session with unrecoverable snapshot",
			zap.String("session_id", sessionID),
			zap.String("customer_email", verification.CustomerEmail),
		)
		return nil, &domain.ErrSnapshotLost{SessionID: sessionID}
	}

	selectedPlan := ""
	if verification.SelectedPlan != nil {
		selectedPlan = *verification.SelectedPlan
	}

	return s.ProvisionAccount(ctx, verification.FormData, selectedPlan)
}

// ProvisionAccount creates the identity, then the profile, then mirrors the
// lead into the CRM. The first two steps are required; the mirror is
// detached and best-effort. A duplicate email resumes a half-finished
// provision when the profile row is missing, and conflicts otherwise.
func (s *ProvisionService) ProvisionAccount(ctx context.Context, snapshot domain.SignupSnapshot, selectedPlan string) (*domain.ProvisionResult, error) {
	ctx, span := provisionTracer.Start(ctx, "ProvisionService.ProvisionAccount")
	defer span.End()

	email := snapshot.Email()
	password := snapshot.Password()
	if email == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "email is required"}
	}
	if password == "" {
		return nil, &domain.ErrValidation{Field: "password", Message: "password is required"}
	}

	identity, tokens, err := s.identity.SignUp(ctx, email, password)
	if err != nil {
		var conflict *domain.ErrConflict
		if !errors.As(err, &conflict) {
			s.metrics.IncrExternalError("supabase")
			return nil, err
		}
		// A previous attempt may have created the identity and then died
		// before the profile insert. Resume instead of failing.
		identity, tokens, err = s.resumeOrphanedIdentity(ctx, email)
		if err != nil {
			return nil, err
		}
	}

	profile, err := s.createProfile(ctx, identity, snapshot, selectedPlan)
	if err != nil {
		// Identity without profile: recoverable on the next attempt via
		// the resume path above, but worth an operator's attention.
		s.logger.Error("provision: profile creation failed after identity creation",
			zap.String("user_id", identity.ID),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.IncrProvisioned("payment")
	s.logger.Info("account provisioned",
		zap.String("user_id", identity.ID),
		zap.String("plan", selectedPlan),
	)

	// CRM mirroring must never block or fail the signup.
	lead := buildLead(snapshot, selectedPlan, s.leadFields)
	runDetached(ctx, s.logger, s.metrics, "crm_mirror", func(ctx context.Context) error {
		if err := s.crm.UpsertLead(ctx, lead); err != nil {
			s.metrics.IncrExternalError("highlevel")
			return err
		}
		return nil
	})

	return &domain.ProvisionResult{User: identity, Profile: profile, Session: tokens}, nil
}

// resumeOrphanedIdentity handles the duplicate-email case: if the identity
// exists but no profile row does, the earlier provision died mid-flight and
// this attempt finishes the job. A complete account stays a conflict.
func (s *ProvisionService) resumeOrphanedIdentity(ctx context.Context, email string) (*domain.Identity, *domain.SessionTokens, error) {
	existing, err := s.identity.AdminFindUserByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if existing == nil {
		return nil, nil, &domain.ErrConflict{Message: "an account with this email already exists"}
	}

	profile, err := s.profiles.GetProfileByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if profile != nil {
		return nil, nil, &domain.ErrConflict{Message: "an account with this email already exists"}
	}

	s.logger.Warn("provision: resuming orphaned identity",
		zap.String("user_id", existing.ID),
	)
	// No session tokens on the resume path; the user signs in normally.
	return existing, nil, nil
}

func (s *ProvisionService) createProfile(ctx context.Context, identity *domain.Identity, snapshot domain.SignupSnapshot, selectedPlan string) (*domain.UserProfile, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	columns := snapshot.ProfileColumns()
	columns["id"] = identity.ID
	columns["email"] = identity.Email
	columns["role"] = domain.RoleUser
	columns["payment_status"] = domain.PaymentStatusCompleted
	columns["has_agent_number"] = false
	columns["created_at"] = now
	columns["updated_at"] = now
	if selectedPlan != "" {
		columns["selected_plan"] = selectedPlan
	}

	return s.profiles.CreateProfile(ctx, columns)
}

// buildLead maps the signup snapshot onto a CRM lead. Qualification answers
// land in location-specific custom fields; everything else uses the CRM's
// native contact columns.
func buildLead(snapshot domain.SignupSnapshot, selectedPlan string, ids config.CRMLeadFieldIDs) *domain.CRMLead {
	lead := &domain.CRMLead{
		Type:        "lead",
		FirstName:   snapshot["firstName"],
		LastName:    snapshot["lastName"],
		Email:       snapshot.Email(),
		Phone:       snapshot["phone"],
		City:        snapshot["city"],
		Address1:    snapshot["address"],
		CompanyName: snapshot["company"],
		State:       snapshot["state"],
		PostalCode:  snapshot["zipCode"],
	}

	addField := func(id, value string) {
		if id != "" && value != "" {
			lead.CustomFields = append(lead.CustomFields, domain.CRMCustomField{ID: id, Value: value})
		}
	}
	addField(ids.YearsInBusiness, snapshot["yearsInBusiness"])
	addField(ids.AverageJobValue, snapshot["averageJobValue"])
	addField(ids.CallVolume, snapshot["callVolume"])
	addField(ids.CurrentChallenges, snapshot["currentChallenges"])
	addField(ids.PreferredStartDate, snapshot["preferredStartDate"])
	addField(ids.HearAboutUs, snapshot["hearAboutUs"])
	addField(ids.BusinessType, snapshot["businessType"])
	addField(ids.SelectedPlan, selectedPlan)

	return lead
}
