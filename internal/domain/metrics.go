package domain

// SignupFunnelMetrics is the cumulative snapshot served by
// GET /v1/metrics/signup for operator dashboards.
type SignupFunnelMetrics struct {
	CheckoutSessionsCreated int64   `json:"checkout_sessions_created"`
	PaymentsVerifiedPaid    int64   `json:"payments_verified_paid"`
	PaymentsVerifiedUnpaid  int64   `json:"payments_verified_unpaid"`
	AccountsProvisioned     int64   `json:"accounts_provisioned"`
	NumbersSaved            int64   `json:"numbers_saved"`
	DetachedTaskFailures    int64   `json:"detached_task_failures"`
	ErrorRate               float64 `json:"error_rate"`
	ContactCacheHitRate     float64 `json:"contact_cache_hit_rate"`
	Period                  string  `json:"period"`
}
