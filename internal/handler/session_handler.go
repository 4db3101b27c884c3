package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fieldcall/fieldcall-backend/internal/domain"
	"github.com/fieldcall/fieldcall-backend/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Session bootstrap + self-service profile
// ============================================================

func sessionBootstrapHandler(bootstrapSvc *service.BootstrapService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/session/bootstrap")
		defer span.End()

		userID := UserIDFromContext(ctx)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		result, err := bootstrapSvc.Bootstrap(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func updateMyProfileHandler(bootstrapSvc *service.BootstrapService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/profiles/me")
		defer span.End()

		userID := UserIDFromContext(ctx)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var fields domain.SignupSnapshot
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		profile, err := bootstrapSvc.UpdateMyProfile(ctx, userID, fields)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, profile)
	}
}
