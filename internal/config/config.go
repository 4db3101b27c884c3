package config

import (
	"os"
	"strconv"
	"time"

	"github.com/fieldcall/fieldcall-backend/internal/domain"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Public site, used to build checkout return URLs
	SiteURL string

	// Stripe
	StripeSecretKey string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	SupabaseJWTSecret  string

	// CRM (HighLevel / LeadConnector)
	CRMBaseURL     string
	CRMToken       string
	CRMLocationID  string
	CRMAPIVersion  string
	CRMNumberField string // custom field holding the assigned agent number

	// CRM lead custom-field ids (opaque keys, fixed per location)
	CRMLeadFields CRMLeadFieldIDs

	// Workflow engine (n8n)
	NumberWebhookURL string

	// Privileged provisioning
	SuperAdminSecret string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	ContactCacheTTL time.Duration

	// Observability
	OTLPEndpoint string
}

// CRMLeadFieldIDs are the per-location custom-field ids used when mirroring
// a signup into the CRM. They are opaque identifiers, treated purely as
// configuration.
type CRMLeadFieldIDs struct {
	YearsInBusiness    string
	AverageJobValue    string
	CallVolume         string
	CurrentChallenges  string
	PreferredStartDate string
	HearAboutUs        string
	SelectedPlan       string
	BusinessType       string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SiteURL: getEnv("SITE_URL", "https://fieldcall.ai"),

		StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseJWTSecret:  getEnv("SUPABASE_JWT_SECRET", ""),

		CRMBaseURL:     getEnv("CRM_BASE_URL", "https://services.leadconnectorhq.com"),
		CRMToken:       getEnv("CRM_TOKEN", ""),
		CRMLocationID:  getEnv("CRM_LOCATION_ID", ""),
		CRMAPIVersion:  getEnv("CRM_API_VERSION", "2021-07-28"),
		CRMNumberField: getEnv("CRM_NUMBER_FIELD_ID", "Znuo3CRbsgviZTDokZyH"),

		CRMLeadFields: CRMLeadFieldIDs{
			YearsInBusiness:    getEnv("CRM_FIELD_YEARS_IN_BUSINESS", "v0eGTMj6rFuXji4r1Omp"),
			AverageJobValue:    getEnv("CRM_FIELD_AVERAGE_JOB_VALUE", "7nra59HgaNb7SxfojKLS"),
			CallVolume:         getEnv("CRM_FIELD_CALL_VOLUME", "M4uxUGl6zMF4ODz5A3Ju"),
			CurrentChallenges:  getEnv("CRM_FIELD_CURRENT_CHALLENGES", "hGuGil82mHIRP8ytL7vy"),
			PreferredStartDate: getEnv("CRM_FIELD_PREFERRED_START_DATE", "SBzpHwGMzeyJiCPpjN1p"),
			HearAboutUs:        getEnv("CRM_FIELD_HEAR_ABOUT_US", "Pz5nZm958YTBtXD2gPMN"),
			SelectedPlan:       getEnv("CRM_FIELD_SELECTED_PLAN", "quFCVTG7j5iVly7ngoig"),
			BusinessType:       getEnv("CRM_FIELD_BUSINESS_TYPE", "HIedxID7MPkTo3JOyJIB"),
		},

		NumberWebhookURL: getEnv("NUMBER_WEBHOOK_URL", ""),

		SuperAdminSecret: getEnv("SUPER_ADMIN_SECRET", ""),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		ContactCacheTTL: getEnvDuration("CONTACT_CACHE_TTL", 2*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
}

// Validate checks that the secrets required at runtime are present. The
// service fails fast on a missing credential rather than degrading into
// half-working handlers.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"STRIPE_SECRET_KEY", c.StripeSecretKey},
		{"SUPABASE_URL", c.SupabaseURL},
		{"SUPABASE_ANON_KEY", c.SupabaseAnonKey},
		{"SUPABASE_SERVICE_ROLE_KEY", c.SupabaseServiceKey},
		{"SUPABASE_JWT_SECRET", c.SupabaseJWTSecret},
		{"SUPER_ADMIN_SECRET", c.SuperAdminSecret},
	}
	for _, r := range required {
		if r.value == "" {
			return &domain.ErrConfiguration{Name: r.name}
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
