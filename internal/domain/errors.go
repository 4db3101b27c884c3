package domain

import "fmt"

// Error types shared across services and handlers. Handlers map these to
// HTTP status codes in one place.

// ErrValidation indicates a missing or malformed request field.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrNotFound indicates a referenced resource does not exist.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrConflict indicates the resource already exists (e.g. an account was
// already created for the email).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrUnauthorized indicates a missing/invalid token or a bad shared secret.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrForbidden indicates the caller lacks the role for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrUpstream indicates a failure in an external collaborator (Stripe,
// Supabase, CRM, workflow engine). Status carries the upstream HTTP status
// when one was received, 0 otherwise.
type ErrUpstream struct {
	Service string
	Status  int
	Detail  string
	Err     error
}

func (e *ErrUpstream) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("upstream error [%s]: %s", e.Service, e.Detail)
	}
	return fmt.Sprintf("upstream error [%s]: %v", e.Service, e.Err)
}

func (e *ErrUpstream) Unwrap() error {
	return e.Err
}

// ErrConfiguration indicates a required secret or credential is missing.
// Startup checks fail fast on these rather than degrading silently.
type ErrConfiguration struct {
	Name string
}

func (e *ErrConfiguration) Error() string {
	return fmt.Sprintf("missing required configuration: %s", e.Name)
}

// ErrPaymentIncomplete indicates a checkout session whose payment status is
// anything other than the provider's canonical "paid" value.
type ErrPaymentIncomplete struct {
	SessionID string
	Status    string
}

func (e *ErrPaymentIncomplete) Error() string {
	return fmt.Sprintf("payment not completed for session %s (status %q)", e.SessionID, e.Status)
}

// ErrSnapshotLost indicates a paid session whose embedded signup snapshot
// could not be recovered from metadata. Distinct from not-paid: the customer
// was charged and operator intervention is required.
type ErrSnapshotLost struct {
	SessionID string
}

func (e *ErrSnapshotLost) Error() string {
	return fmt.Sprintf("payment confirmed for session %s but signup data is unrecoverable", e.SessionID)
}
