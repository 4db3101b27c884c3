package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldcall/fieldcall-backend/internal/config"
	"github.com/fieldcall/fieldcall-backend/internal/handler"
	"github.com/fieldcall/fieldcall-backend/internal/infra/cache"
	"github.com/fieldcall/fieldcall-backend/internal/infra/highlevel"
	"github.com/fieldcall/fieldcall-backend/internal/infra/observability"
	"github.com/fieldcall/fieldcall-backend/internal/infra/resilience"
	"github.com/fieldcall/fieldcall-backend/internal/infra/stripe"
	"github.com/fieldcall/fieldcall-backend/internal/infra/supabase"
	"github.com/fieldcall/fieldcall-backend/internal/infra/workflow"
	"github.com/fieldcall/fieldcall-backend/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("site_url", cfg.SiteURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("contact_cache_ttl", cfg.ContactCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Bool("crm_enabled", cfg.CRMToken != ""),
		zap.Bool("number_webhook_enabled", cfg.NumberWebhookURL != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "fieldcall-backend")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	contactCache := cache.New[string](cfg.ContactCacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	stripeCB := resilience.NewCircuitBreaker("stripe")
	supabaseCB := resilience.NewCircuitBreaker("supabase")
	crmCB := resilience.NewCircuitBreaker("highlevel")
	workflowCB := resilience.NewCircuitBreaker("workflow")
	crmBulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	paymentGateway, err := stripe.NewGateway(cfg.StripeSecretKey, cfg.SiteURL, stripeCB, resilienceCfg, logger)
	if err != nil {
		logger.Fatal("failed to init stripe gateway", zap.Error(err))
	}

	supabaseClient := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		supabaseCB,
		resilienceCfg,
		logger,
	)

	crmClient := highlevel.NewClient(
		httpClient,
		cfg.CRMBaseURL,
		cfg.CRMToken,
		cfg.CRMLocationID,
		cfg.CRMAPIVersion,
		crmCB,
		crmBulkhead,
		resilienceCfg,
		logger,
	)

	workflowClient := workflow.NewClient(httpClient, cfg.NumberWebhookURL, workflowCB, logger)

	// --- Services ---
	checkoutSvc := service.NewCheckoutService(paymentGateway, metrics, logger)
	provisionSvc := service.NewProvisionService(
		checkoutSvc,
		supabaseClient,
		supabaseClient,
		crmClient,
		cfg.CRMLeadFields,
		metrics,
		logger,
	)
	bootstrapSvc := service.NewBootstrapService(
		supabaseClient,
		crmClient,
		contactCache,
		cfg.CRMNumberField,
		metrics,
		logger,
	)
	numberSvc := service.NewNumberService(workflowClient, supabaseClient, contactCache, metrics, logger)
	adminSvc := service.NewAdminService(supabaseClient, supabaseClient, cfg.SuperAdminSecret, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Checkout:  checkoutSvc,
		Provision: provisionSvc,
		Bootstrap: bootstrapSvc,
		Numbers:   numberSvc,
		Admin:     adminSvc,
	}, supabaseClient, metrics, cfg.SupabaseJWTSecret, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
