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
)

var numberTracer = otel.Tracer("service/numbers")

// NumberService relays number purchases to the workflow engine and records
// assignments reported back through the callback.
type NumberService struct {
	workflow port.NumberWorkflow
	profiles port.ProfileStore
	contacts port.Cache[string]
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewNumberService creates the number service.
func NewNumberService(workflow port.NumberWorkflow, profiles port.ProfileStore, contacts port.Cache[string], metrics *observability.Metrics, logger *zap.Logger) *NumberService {
	return &NumberService{
		workflow: workflow,
		profiles: profiles,
		contacts: contacts,
		metrics:  metrics,
		logger:   logger,
	}
}

// RequestNumber forwards a purchase request to the workflow engine. The
// body passes through verbatim; only user_id and email are interpreted
// here, and both must be present. When the workflow answers with a number
// inline, it is saved opportunistically; the callback stays authoritative
// and overwrites if they disagree.
func (s *NumberService) RequestNumber(ctx context.Context, req domain.NumberPurchaseRequest) (*domain.WorkflowAck, error) {
	ctx, span := numberTracer.Start(ctx, "NumberService.RequestNumber")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("number_purchase", time.Since(start)) }()

	if len(req) == 0 {
		return nil, &domain.ErrValidation{Field: "body", Message: "request body is required"}
	}
	if req.UserID() == "" {
		return nil, &domain.ErrValidation{Field: "user_id", Message: "user_id is required"}
	}
	if req.Email() == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "email is required"}
	}
	span.SetAttributes(attribute.String("user.id", req.UserID()))

	ack, err := s.workflow.Trigger(ctx, req)
	if err != nil {
		s.metrics.IncrExternalError("n8n")
		return nil, err
	}

	s.logger.Info("number purchase relayed",
		zap.String("user_id", req.UserID()),
		zap.Bool("success", ack.Success),
		zap.Bool("inline_number", ack.PhoneNumber != ""),
	)

	if ack.PhoneNumber != "" {
		userID := req.UserID()
		number := ack.PhoneNumber
		runDetached(ctx, s.logger, s.metrics, "inline_number_save", func(ctx context.Context) error {
			return s.persistNumber(ctx, userID, number)
		})
	}

	return ack, nil
}

// SaveAgentNumber records the number assignment delivered by the workflow
// callback. Unknown users are rejected without any write.
func (s *NumberService) SaveAgentNumber(ctx context.Context, callback domain.AgentNumberCallback) (*domain.UserProfile, error) {
	ctx, span := numberTracer.Start(ctx, "NumberService.SaveAgentNumber")
	defer span.End()

	cleaned := callback.Cleaned()
	if cleaned.PhoneNumber == "" {
		return nil, &domain.ErrValidation{Field: "phoneNumber", Message: "phoneNumber is required"}
	}
	if cleaned.UserID == "" {
		return nil, &domain.ErrValidation{Field: "user_id", Message: "user_id is required"}
	}
	span.SetAttributes(attribute.String("user.id", cleaned.UserID))

	profile, err := s.profiles.GetProfileByID(ctx, cleaned.UserID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, &domain.ErrNotFound{Resource: "user", ID: cleaned.UserID}
	}

	updated, err := s.profiles.UpdateProfile(ctx, cleaned.UserID, map[string]any{
		"agent_number":     cleaned.PhoneNumber,
		"has_agent_number": true,
		"updated_at":       time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}

	// Drop any stale cached CRM view for this user.
	s.contacts.Delete(profile.Email)

	s.metrics.IncrNumberSaved()
	s.logger.Info("agent number saved",
		zap.String("user_id", cleaned.UserID),
		zap.String("friendly_name", cleaned.FriendlyName),
	)

	return updated, nil
}

func (s *NumberService) persistNumber(ctx context.Context, userID, number string) error {
	profile, err := s.profiles.GetProfileByID(ctx, userID)
	if err != nil {
		return err
	}
	if profile == nil {
		return &domain.ErrNotFound{Resource: "user", ID: userID}
	}

	_, err = s.profiles.UpdateProfile(ctx, userID, map[string]any{
		"agent_number":     number,
		"has_agent_number": true,
		"updated_at":       time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	s.contacts.Delete(profile.Email)
	s.metrics.IncrNumberSaved()
	return nil
}
