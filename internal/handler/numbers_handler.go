package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fieldcall/fieldcall-backend/internal/domain"
	"github.com/fieldcall/fieldcall-backend/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Number provisioning relay
// ============================================================

func buyNumberHandler(numberSvc *service.NumberService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/numbers/buy")
		defer span.End()

		var req domain.NumberPurchaseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		ack, err := numberSvc.RequestNumber(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, ack)
	}
}

func numberCallbackHandler(numberSvc *service.NumberService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/numbers/callback")
		defer span.End()

		var callback domain.AgentNumberCallback
		if err := json.NewDecoder(r.Body).Decode(&callback); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		profile, err := numberSvc.SaveAgentNumber(ctx, callback)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		// The workflow engine consumes this shape; it reads the echoed
		// assignment out of data.
		cleaned := callback.Cleaned()
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"user_id":         cleaned.UserID,
				"agent_number":    profile.AgentNumber,
				"friendly_name":   cleaned.FriendlyName,
				"updated_profile": profile,
			},
		})
	}
}
