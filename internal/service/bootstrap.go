package service

import (
	"context"
	"time"

	"github.com/fieldcall/fieldcall-backend/internal/domain"
	"github.com/fieldcall/fieldcall-backend/internal/infra/observability"
	"github.com/fieldcall/fieldcall-backend/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var bootstrapTracer = otel.Tracer("service/bootstrap")

// BootstrapService assembles the session-start view: profile plus the
// reconciled agent number. The profile is authoritative; the CRM custom
// field is fallback, and a CRM hit converges the profile in the background.
type BootstrapService struct {
	profiles      port.ProfileStore
	crm           port.CRMClient
	contacts      port.Cache[string]
	numberFieldID string
	group         singleflight.Group
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NewBootstrapService creates the bootstrap service. numberFieldID is the
// CRM custom-field id that holds assigned agent numbers.
func NewBootstrapService(
	profiles port.ProfileStore,
	crm port.CRMClient,
	contacts port.Cache[string],
	numberFieldID string,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *BootstrapService {
	return &BootstrapService{
		profiles:      profiles,
		crm:           crm,
		contacts:      contacts,
		numberFieldID: numberFieldID,
		metrics:       metrics,
		logger:        logger,
	}
}

// Bootstrap loads the caller's profile and resolves their agent number.
// A CRM outage degrades to "Not assigned yet" rather than failing the
// session start.
func (s *BootstrapService) Bootstrap(ctx context.Context, userID string) (*domain.SessionBootstrap, error) {
	ctx, span := bootstrapTracer.Start(ctx, "BootstrapService.Bootstrap")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("bootstrap", time.Since(start)) }()

	// No profile means no dashboard: a missing or unreadable row is treated
	// as a logged-out session, never a partial view.
	profile, err := s.profiles.GetProfileByID(ctx, userID)
	if err != nil {
		s.metrics.IncrExternalError("supabase")
		s.logger.Warn("bootstrap: profile fetch failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, &domain.ErrUnauthorized{Message: "session could not be established"}
	}
	if profile == nil {
		return nil, &domain.ErrUnauthorized{Message: "session could not be established"}
	}

	state := domain.NextNumberState(domain.NumberState{}, domain.NumberEvent{Kind: domain.EventBootstrapStarted})

	resolution, lookupErr := domain.ResolveAgentNumber(profile, s.lookupNumber(ctx))

	switch {
	case profile.HasAgentNumber && profile.AgentNumber != "":
		state = domain.NextNumberState(state, domain.NumberEvent{Kind: domain.EventProfileHasNumber, Value: profile.AgentNumber})
	default:
		state = domain.NextNumberState(state, domain.NumberEvent{Kind: domain.EventProfileLacksNumber})
		switch {
		case lookupErr != nil:
			s.metrics.IncrExternalError("highlevel")
			s.logger.Warn("bootstrap: CRM number lookup failed",
				zap.String("user_id", userID),
				zap.Error(lookupErr),
			)
			state = domain.NextNumberState(state, domain.NumberEvent{Kind: domain.EventCRMFailed})
		case resolution.Assigned:
			state = domain.NextNumberState(state, domain.NumberEvent{Kind: domain.EventCRMFoundNumber, Value: resolution.Value})
		default:
			state = domain.NextNumberState(state, domain.NumberEvent{Kind: domain.EventCRMEmpty})
		}
	}

	// Converge the profile toward the CRM value off the request path.
	if resolution.ShouldPersist {
		number := resolution.Value
		runDetached(ctx, s.logger, s.metrics, "number_convergence", func(ctx context.Context) error {
			_, err := s.profiles.UpdateProfile(ctx, userID, map[string]any{
				"agent_number":     number,
				"has_agent_number": true,
				"updated_at":       time.Now().UTC().Format(time.RFC3339),
			})
			return err
		})
	}

	return &domain.SessionBootstrap{
		Profile:      profile,
		AgentNumber:  resolution.Value,
		NumberStatus: state.Status,
	}, nil
}

// UpdateMyProfile applies a self-service profile edit. Only the form's
// business fields can be changed this way; role, plan and payment columns
// are not reachable from the snapshot mapping.
func (s *BootstrapService) UpdateMyProfile(ctx context.Context, userID string, fields domain.SignupSnapshot) (*domain.UserProfile, error) {
	ctx, span := bootstrapTracer.Start(ctx, "BootstrapService.UpdateMyProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	updates := fields.ProfileColumns()
	if len(updates) == 0 {
		return nil, &domain.ErrValidation{Field: "body", Message: "no updatable fields provided"}
	}
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)

	return s.profiles.UpdateProfile(ctx, userID, updates)
}

// lookupNumber returns the CRM lookup used by ResolveAgentNumber: cached
// per email, with concurrent lookups for the same email collapsed into one
// upstream call.
func (s *BootstrapService) lookupNumber(ctx context.Context) func(email string) (string, error) {
	return func(email string) (string, error) {
		if v, ok := s.contacts.Get(email); ok {
			s.metrics.IncrCacheHit("crm_contact")
			return v, nil
		}
		s.metrics.IncrCacheMiss("crm_contact")

		v, err, _ := s.group.Do(email, func() (any, error) {
			contact, err := s.crm.FindContactByEmail(ctx, email)
			if err != nil {
				return "", err
			}
			if contact == nil {
				return "", nil
			}
			value, _ := contact.CustomField(s.numberFieldID)
			return value, nil
		})
		if err != nil {
			return "", err
		}

		number := v.(string)
		s.contacts.Set(email, number)
		return number, nil
	}
}
