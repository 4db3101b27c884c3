package handler

import (
	"net/http"
	"time"

	"github.com/fieldcall/fieldcall-backend/internal/infra/observability"
	"github.com/fieldcall/fieldcall-backend/internal/port"
	"github.com/fieldcall/fieldcall-backend/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services bundles the application services the router dispatches to.
type Services struct {
	Checkout  *service.CheckoutService
	Provision *service.ProvisionService
	Bootstrap *service.BootstrapService
	Numbers   *service.NumberService
	Admin     *service.AdminService
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, profiles port.ProfileStore, metrics *observability.Metrics, jwtSecret string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// The signup pages run on a different origin than the API.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", adminSecretHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	requireAuth := JWTAuthMiddleware(jwtSecret, logger)

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(profiles, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. Checkout + deferred signup
		// =============================================
		r.Post("/checkout/session", createCheckoutSessionHandler(svcs.Checkout, logger))
		r.Post("/checkout/verify", verifyPaymentHandler(svcs.Checkout, logger))
		r.Post("/signup/complete", completeSignupHandler(svcs.Provision, logger))

		// =============================================
		// 2. Session bootstrap + self-service profile
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/session/bootstrap", sessionBootstrapHandler(svcs.Bootstrap, logger))
			r.Put("/profiles/me", updateMyProfileHandler(svcs.Bootstrap, logger))
			r.Get("/admin/profiles", adminListProfilesHandler(svcs.Admin, logger))
		})

		// =============================================
		// 3. Number provisioning relay
		// =============================================
		r.Post("/numbers/buy", buyNumberHandler(svcs.Numbers, logger))
		r.Post("/numbers/callback", numberCallbackHandler(svcs.Numbers, logger))

		// =============================================
		// 4. Privileged operator endpoints (shared secret)
		// =============================================
		r.Post("/admin/accounts", adminCreateAccountHandler(svcs.Admin, logger))
		r.Post("/admin/super-admin", adminSetSuperAdminHandler(svcs.Admin, logger))

		// =============================================
		// 5. Signup funnel metrics
		// =============================================
		r.Get("/metrics/signup", signupMetricsHandler(metrics))
	})

	return r
}

// healthzHandler reports liveness plus a shallow dependency probe against
// the profile store.
func healthzHandler(profiles port.ProfileStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		status := "healthy"
		supabase := "healthy"
		var latency int64

		if profiles != nil {
			start := time.Now()
			if _, err := profiles.GetProfileByID(ctx, "health-check"); err != nil {
				logger.Warn("healthz: profile store probe failed", zap.Error(err))
				supabase = "degraded"
				status = "degraded"
			}
			latency = time.Since(start).Milliseconds()
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status": status,
			"checks": map[string]any{
				"supabase": map[string]any{
					"status":     supabase,
					"latency_ms": latency,
				},
			},
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func signupMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.SignupFunnelSnapshot())
	}
}
