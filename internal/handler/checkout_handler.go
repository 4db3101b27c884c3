package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fieldcall/fieldcall-backend/internal/domain"
	"github.com/fieldcall/fieldcall-backend/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Checkout: payment-first signup
// ============================================================

func createCheckoutSessionHandler(checkoutSvc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/checkout/session")
		defer span.End()

		var req domain.CheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := checkoutSvc.CreateSession(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

type verifyPaymentRequest struct {
	SessionID string `json:"session_id"`
}

func verifyPaymentHandler(checkoutSvc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/checkout/verify")
		defer span.End()

		var req verifyPaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.SessionID == "" {
			req.SessionID = r.URL.Query().Get("session_id")
		}

		verification, err := checkoutSvc.VerifyPayment(ctx, req.SessionID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, verification)
	}
}

// ============================================================
// Deferred provisioning: verify then provision, server-side
// ============================================================

type completeSignupRequest struct {
	SessionID string `json:"session_id"`
}

func completeSignupHandler(provisionSvc *service.ProvisionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/signup/complete")
		defer span.End()

		var req completeSignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := provisionSvc.CompleteSignup(ctx, req.SessionID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, result)
	}
}
