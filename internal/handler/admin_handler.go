package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fieldcall/fieldcall-backend/internal/domain"
	"github.com/fieldcall/fieldcall-backend/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Privileged admin endpoints
// ============================================================

// adminSecretHeader carries the shared operator secret for callers that
// prefer it out of the body. These endpoints are called by operators and
// automation, never by browsers.
const adminSecretHeader = "X-Admin-Secret"

// operatorSecret resolves the shared secret: the JSON body field wins, the
// header is the fallback.
func operatorSecret(r *http.Request, bodySecret string) string {
	if bodySecret != "" {
		return bodySecret
	}
	return r.Header.Get(adminSecretHeader)
}

func adminCreateAccountHandler(adminSvc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/accounts")
		defer span.End()

		var req domain.AdminAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := adminSvc.CreateAccount(ctx, operatorSecret(r, req.Secret), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, result)
	}
}

func adminSetSuperAdminHandler(adminSvc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/super-admin")
		defer span.End()

		var req domain.PromoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		profile, err := adminSvc.SetSuperAdmin(ctx, operatorSecret(r, req.Secret), req.Email)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, profile)
	}
}

func adminListProfilesHandler(adminSvc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/profiles")
		defer span.End()

		userID := UserIDFromContext(ctx)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		page, pageSize := parsePagination(r)
		profiles, err := adminSvc.ListProfiles(ctx, userID, page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"profiles":  profiles,
			"page":      page,
			"page_size": pageSize,
		})
	}
}
