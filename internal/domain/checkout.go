package domain

// Stripe's canonical payment status for a settled checkout session. Any other
// value (unpaid, no_payment_required, processing artifacts) counts as unpaid.
const CheckoutPaymentStatusPaid = "paid"

// Metadata keys carrying the deferred signup through the payment provider.
const (
	MetadataFormData     = "formData"
	MetadataSelectedPlan = "selectedPlan"
)

// CheckoutRequest is the body of POST /v1/checkout/session.
type CheckoutRequest struct {
	FormData     SignupSnapshot `json:"formData"`
	SelectedPlan string         `json:"selectedPlan"`
}

// CheckoutSession is the provider's view of a payment attempt, reduced to the
// fields this service reads. Owned entirely by Stripe; identified by an
// opaque session id.
type CheckoutSession struct {
	ID            string
	URL           string
	PaymentStatus string
	CustomerEmail string
	AmountTotal   int64
	Metadata      map[string]string
}

// CheckoutSessionResult is returned to the client, which redirects to URL.
type CheckoutSessionResult struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// PaymentVerification is the outcome of verifying a returned session id.
// FormData and SelectedPlan are null unless the session is paid and its
// metadata was recoverable.
type PaymentVerification struct {
	Paid          bool           `json:"paid"`
	FormData      SignupSnapshot `json:"formData"`
	SelectedPlan  *string        `json:"selectedPlan"`
	CustomerEmail string         `json:"customer_email"`
	AmountTotal   int64          `json:"amount_total"`
}

// ProvisionResult is the outcome of deferred account provisioning: the new
// identity, its profile row, and the session established at signup.
type ProvisionResult struct {
	User    *Identity      `json:"user"`
	Profile *UserProfile   `json:"profile"`
	Session *SessionTokens `json:"session,omitempty"`
}
